package assess

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"picturetalk/traced"
)

// FetchImage reads the bytes behind a locator: a plain path, a file:// URL
// or an http(s):// URL.
func FetchImage(ctx context.Context, client *traced.Client, locator string) ([]byte, error) {
	data, err := fetch(ctx, client, locator)
	if err != nil {
		return nil, &ImageFetchError{Locator: locator, Err: err}
	}
	if len(data) == 0 {
		return nil, &ImageFetchError{Locator: locator, Err: errors.New("image is empty")}
	}
	return data, nil
}

func fetch(ctx context.Context, client *traced.Client, locator string) ([]byte, error) {
	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.Body, nil
	case strings.HasPrefix(locator, "file://"):
		u, err := url.Parse(locator)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(u.Path)
	default:
		return os.ReadFile(locator)
	}
}
