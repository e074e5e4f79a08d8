package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AutocompleteClient queries the city search endpoint (GET <base>/cities/<term>).
type AutocompleteClient struct {
	baseURL string
	client  *http.Client
}

// NewAutocompleteClient returns a client for the service rooted at baseURL.
func NewAutocompleteClient(baseURL string, hc *http.Client) *AutocompleteClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &AutocompleteClient{baseURL: strings.TrimRight(baseURL, "/"), client: hc}
}

// Suggest returns the city names matching term. An empty term returns no
// suggestions without a request.
func (a *AutocompleteClient) Suggest(ctx context.Context, term string) ([]string, error) {
	if term == "" {
		return []string{}, nil
	}
	body, err := get(ctx, a.client, "autocomplete", a.baseURL+"/cities/"+url.PathEscape(term))
	if err != nil {
		return nil, fmt.Errorf("suggest %q: %w", term, err)
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
