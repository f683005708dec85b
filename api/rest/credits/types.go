package credits

import "codeberg.org/restage/server/restage/credits"

type BalanceResponse struct {
	Credits int `json:"credits"`
}

type HistoryParams struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

type HistoryResponse struct {
	History []credits.Entry `json:"history"`
}
