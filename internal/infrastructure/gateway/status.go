package gateway

import "github.com/LavaJover/shvark-payment-service/internal/domain"

const (
	codeSuccess        = "10000"
	codeBusinessFailed = "40004"
	subCodeNotExist    = "ACQ.TRADE_NOT_EXIST"
)

func parseTradeStatus(raw string) domain.TradeStatus {
	switch raw {
	case "TRADE_SUCCESS", "TRADE_FINISHED":
		return domain.TradeSuccess
	case "TRADE_CLOSED":
		return domain.TradeClosed
	case "WAIT_BUYER_PAY":
		return domain.TradeWaitPayment
	default:
		return domain.TradeUnknown
	}
}

func isTradeNotExist(code, subCode string) bool {
	return code == codeBusinessFailed && subCode == subCodeNotExist
}
