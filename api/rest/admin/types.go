package admin

const defaultGrantAmount = 10

// AddCreditsRequest grants credits; an empty userId targets the caller
type AddCreditsRequest struct {
	UserID      string `json:"userId"`
	Amount      *int   `json:"amount" binding:"omitempty,min=1,max=100000"`
	Description string `json:"description" binding:"max=200"`
}

type AddCreditsResponse struct {
	UserID  string `json:"userId"`
	Credits int    `json:"credits"`
}
