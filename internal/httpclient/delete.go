package httpclient

import (
	"context"
	"net/http"
)

// DoDELETE sends a DELETE request; any 2xx status is success
func (c *httpClientWrapper) DoDELETE(ctx context.Context, urlStr string) error {
	c.logger.Debug("starting DELETE request", "url", urlStr)

	resp, err := c.send(ctx, http.MethodDelete, urlStr, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("DELETE request complete", "status", resp.Status)
	return nil
}
