package preferences

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	domainerrors "github.com/siralexgrey/yasno-zrozumilo/internal/domain/errors"
)

// HTTPBackend — простий blob-store "ключ-вміст" поверх HTTPS з токеном:
// GET повертає останній знімок, PUT замінює його цілком.
type HTTPBackend struct {
	client *resty.Client
	url    string
}

func NewHTTPBackend(client *resty.Client, url, token string) *HTTPBackend {
	client.SetHeader("Authorization", "Bearer "+token)

	return &HTTPBackend{
		client: client,
		url:    url,
	}
}

func (b *HTTPBackend) Name() string {
	return "http:" + b.url
}

func (b *HTTPBackend) Load(ctx context.Context) (*Snapshot, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(b.url)

	if err != nil {
		return nil, fmt.Errorf("помилка запиту до віддаленого сховища: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &domainerrors.ErrSnapshotNotFound{}
	}

	if !resp.IsSuccess() {
		return nil, &domainerrors.HTTPError{StatusCode: resp.StatusCode()}
	}

	return decodeSnapshot(resp.Body())
}

func (b *HTTPBackend) Store(ctx context.Context, snapshot *Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Put(b.url)

	if err != nil {
		return fmt.Errorf("помилка запису у віддалене сховище: %w", err)
	}

	if !resp.IsSuccess() {
		return &domainerrors.HTTPError{StatusCode: resp.StatusCode()}
	}

	return nil
}
