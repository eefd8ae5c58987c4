package mocks

//go:generate mockgen -destination=./mock_exchange.go -package=mocks binance-grid-bot-go/internal/exchange Client
//go:generate mockgen -destination=./mock_pricefeed.go -package=mocks binance-grid-bot-go/internal/pricefeed Source
//go:generate mockgen -destination=./mock_rest_client.go -package=mocks binance-grid-bot-go/internal/binance RestClientInterface
