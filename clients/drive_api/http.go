package drive_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-drive/status_server"
)

// ErrNoCommand is returned when the controller found no command in the text.
var ErrNoCommand = errors.New("no command in text")

type clientImpl struct {
	apiHost    string
	httpClient *http.Client
}

type Config struct {
	ApiHost string
	// HTTPClient defaults to a client with a ten second timeout.
	HTTPClient *http.Client
}

func NewClient(cfg *Config) (DriveAPI, error) {
	if cfg == nil {
		return nil, errors.New("missing parameter: cfg")
	}

	if cfg.ApiHost == "" {
		return nil, errors.New("missing parameter: cfg.ApiHost")
	}

	apiHost := strings.TrimSuffix(cfg.ApiHost, "/")
	if !strings.Contains(apiHost, "://") {
		apiHost = "http://" + apiHost
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &clientImpl{
		apiHost:    apiHost,
		httpClient: httpClient,
	}, nil
}

func (client *clientImpl) SendCommand(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(status_server.CommandRequest{Text: text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.apiHost+"/command", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	var resp status_server.CommandResponse

	err = client.do(req, http.StatusAccepted, &resp)
	if err != nil {
		return "", err
	}

	return resp.Command, nil
}

func (client *clientImpl) State(ctx context.Context) (*status_server.StateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.apiHost+"/state", nil)
	if err != nil {
		return nil, err
	}

	var resp status_server.StateResponse

	err = client.do(req, http.StatusOK, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

func (client *clientImpl) do(req *http.Request, wantStatus int, out any) error {
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return ErrNoCommand
	}

	if resp.StatusCode != wantStatus {
		var apiErr status_server.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, apiErr.Error)
		}

		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
