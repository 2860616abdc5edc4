package models

// Requests for the features and sweep HTTP endpoints. Defined in domain for
// consistency and reuse.

type FeaturesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   int64  `query:"from" json:"from" validate:"gte=0"`
	To     int64  `query:"to" json:"to" validate:"gte=0"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"600" validate:"gte=1,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"5m" validate:"oneof=1m 5m 15m"`
}

type SweepSubmitRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	From   int64  `json:"from" validate:"required,gt=0"`
	To     int64  `json:"to" validate:"required,gtfield=From"`
}

type SweepStatusRequest struct {
	ID string `param:"id" json:"id" validate:"required"`
}
