package mocks

//go:generate mockgen -destination=./mock_exchange.go -package=mocks github.com/rxtech-lab/argo-futures/internal/exchange Exchange
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-futures/pkg/marketdata Provider
//go:generate mockgen -destination=./mock_notifier.go -package=mocks github.com/rxtech-lab/argo-futures/internal/notify Notifier
//go:generate mockgen -destination=./mock_recorder.go -package=mocks github.com/rxtech-lab/argo-futures/internal/journal Recorder
