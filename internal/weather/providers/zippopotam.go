package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/i474232898/nws-weather/internal/weather"
)

const DefaultZippopotamBaseURL = "https://api.zippopotam.us"

// ZippopotamProvider implements weather.Geocoder for US ZIP codes.
type ZippopotamProvider struct {
	baseURL string
	client  *Client
}

func NewZippopotamProvider(client *Client, baseURL string) *ZippopotamProvider {
	if baseURL == "" {
		baseURL = DefaultZippopotamBaseURL
	}
	return &ZippopotamProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type zipResponse struct {
	Places []struct {
		PlaceName string `json:"place name"`
		Latitude  string `json:"latitude" validate:"required"`
		Longitude string `json:"longitude" validate:"required"`
	} `json:"places" validate:"dive"`
}

// LookupZIP returns the places registered for zip, in upstream order.
func (p *ZippopotamProvider) LookupZIP(ctx context.Context, zip string) ([]weather.Place, error) {
	u := fmt.Sprintf("%s/us/%s", p.baseURL, url.PathEscape(zip))

	resp, err := FetchJSON[zipResponse](ctx, p.client, u)
	if err != nil {
		return nil, err
	}

	places := make([]weather.Place, 0, len(resp.Places))
	for _, pl := range resp.Places {
		places = append(places, weather.Place{
			Name:      pl.PlaceName,
			Latitude:  pl.Latitude,
			Longitude: pl.Longitude,
		})
	}
	return places, nil
}

var _ weather.Geocoder = (*ZippopotamProvider)(nil)
