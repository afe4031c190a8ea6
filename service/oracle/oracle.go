package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cdplend/core"
	"cdplend/pkg/resthttp"

	"github.com/fox-one/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type priceResponse struct {
	// unix seconds
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

type httpOracle struct {
	client *resty.Client
}

// New price oracle reading GET {endpoint}/prices/{asset}
func New(cfg core.OracleConfig) core.IPriceOracle {
	return &httpOracle{
		client: resthttp.New(cfg.EndPoint, time.Duration(cfg.Timeout)*time.Second),
	}
}

func (o *httpOracle) GetPrice(ctx context.Context, assetID string) (*core.Price, bool, error) {
	resp, err := o.client.R().
		SetContext(ctx).
		SetPathParam("asset", assetID).
		Get("/prices/{asset}")
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("oracle: pull price", assetID)
		return nil, false, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, false, nil
	}

	var body priceResponse
	if err := resthttp.ParseResponse(resp, &body); err != nil {
		return nil, false, err
	}

	if body.Timestamp <= 0 {
		return nil, false, fmt.Errorf("price of %s without timestamp: %w", assetID, core.ErrInvalidPrice)
	}

	return &core.Price{
		AssetID:   assetID,
		Price:     body.Price,
		Timestamp: time.Unix(body.Timestamp, 0),
	}, true, nil
}
