package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/ledger"
)

// Client calls the API of a running node.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a Client of the service at base, e.g.
// "http://127.0.0.1:8000". timeout bounds every request, flows included.
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// ImportAttachment uploads data and returns its attachment id.
func (c *Client) ImportAttachment(data []byte) (string, error) {
	var res AttachmentResponse
	if err := c.do(http.MethodPost, "/attachments", "application/zip", bytes.NewReader(data), &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// ProposeAgreement runs an agreement flow on the node and returns the
// finalized transaction. Contract rejections are returned as a
// *contract.VerificationError.
func (c *Client) ProposeAgreement(req AgreementRequest) (*ledger.SignedTransaction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var stx ledger.SignedTransaction
	if err := c.do(http.MethodPost, "/agreements", "application/json", bytes.NewReader(body), &stx); err != nil {
		return nil, err
	}
	return &stx, nil
}

// States returns the unconsumed states of type t.
func (c *Client) States(t ledger.StateType) ([]ledger.StateAndRef, error) {
	var states []ledger.StateAndRef
	path := "/states?type=" + url.QueryEscape(string(t))
	if err := c.do(http.MethodGet, path, "", nil, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// Stats returns the statistics of the node.
func (c *Client) Stats() (map[string]string, error) {
	stats := make(map[string]string)
	if err := c.do(http.MethodGet, "/stats", "", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) do(method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		if e.Contract != "" {
			return &contract.VerificationError{Contract: e.Contract, Reason: e.Error}
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, e.Error)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
