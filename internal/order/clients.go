package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProductDTO is the catalog service's product shape. Price travels as text
// (NUMERIC) and is parsed by the consumer.
type ProductDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Image       string `json:"image"`
}

// Identity is the resolved caller: what the identity capability returns for
// a valid bearer token.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Catalog is the product-lookup capability the lifecycle service consumes.
type Catalog interface {
	FetchProduct(ctx context.Context, id string) (*ProductDTO, error)
	AdjustStock(ctx context.Context, productID string, delta int) error
}

// IdentityResolver turns an opaque caller token into a stable identity and
// looks up display profiles for read-time joins.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
	FetchUser(ctx context.Context, id string) (*Identity, error)
}

// Ext bundles the HTTP clients for both external capabilities.
type Ext struct {
	HTTP            *http.Client
	CatalogBaseURL  string
	IdentityBaseURL string
}

func NewExt(catalogBaseURL, identityBaseURL string, timeout time.Duration) *Ext {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Ext{
		HTTP:            &http.Client{Timeout: timeout},
		CatalogBaseURL:  catalogBaseURL,
		IdentityBaseURL: identityBaseURL,
	}
}

func (e *Ext) FetchProduct(ctx context.Context, id string) (*ProductDTO, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/products/%s", e.CatalogBaseURL, id), nil)
	res, err := e.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrUpstream, err)
	}
	defer res.Body.Close()
	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("product not found")
	default:
		return nil, fmt.Errorf("%w: catalog: %s", ErrUpstream, res.Status)
	}
	var p ProductDTO
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrUpstream, err)
	}
	return &p, nil
}

// AdjustStock adds delta to the product's stock (negative delta reserves).
// PUT /products/{id} with { "stockDelta": delta }; the catalog applies the
// change atomically and answers 409 when stock would go negative.
func (e *Ext) AdjustStock(ctx context.Context, productID string, delta int) error {
	body, _ := json.Marshal(map[string]int{"stockDelta": delta})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/products/%s", e.CatalogBaseURL, productID),
		bytes.NewReader(body),
	)
	req.Header.Set("Content-Type", "application/json")
	res, err := e.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: catalog: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrInsufficientStock
	case http.StatusNotFound:
		return fmt.Errorf("product not found")
	case http.StatusBadRequest:
		return fmt.Errorf("invalid stock adjustment")
	default:
		return fmt.Errorf("%w: catalog: %s", ErrUpstream, res.Status)
	}
}

func (e *Ext) Resolve(ctx context.Context, token string) (*Identity, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, e.IdentityBaseURL+"/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := e.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, ErrUnauthorized
	}
	var id Identity
	if err := json.NewDecoder(res.Body).Decode(&id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (e *Ext) FetchUser(ctx context.Context, id string) (*Identity, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s", e.IdentityBaseURL, id), nil)
	res, err := e.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user not found")
	}
	var out Identity
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
