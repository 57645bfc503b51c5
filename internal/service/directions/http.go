package directions

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"saferoute/internal/apperr"
)

const maxErrorBody = 4 << 10

// doJSON executes req and decodes a 2xx JSON body into out.
// Transport failures and non-2xx statuses are NETWORK_ERROR.
func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("%s %s: status %d", req.Method, req.URL.Host+req.URL.Path, resp.StatusCode)
		if text := strings.TrimSpace(string(body)); text != "" {
			return apperr.Wrapf(apperr.KindNetwork, cause, "%s", text)
		}
		return apperr.Wrap(apperr.KindNetwork, cause)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrapf(apperr.KindUnknown, err, "malformed response from %s", req.URL.Host)
	}
	return nil
}
