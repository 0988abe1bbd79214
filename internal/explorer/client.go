// Package explorer talks to Etherscan-compatible contract verification APIs.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/hedgepod/deployer/internal/logger"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	StatusVerified        Status = "verified"
	StatusAlreadyVerified Status = "already verified"

	codeFormatStandardJSON = "solidity-standard-json-input"

	defaultRetryCount       = 3
	defaultRetryWaitTime    = time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
)

var (
	// ErrSubmission is returned when the explorer refused the verification request.
	ErrSubmission = errors.New("verification submission failed")
	// ErrVerificationFailed is returned when the explorer accepted the request but could not
	// match the source to the deployed bytecode.
	ErrVerificationFailed = errors.New("verification failed")
)

type (
	Status string

	// Request describes one contract to verify.
	Request struct {
		Address         common.Address
		ContractName    string
		CompilerVersion string
		// StandardJSONInput is the solc standard JSON input used to build the contract.
		StandardJSONInput string
		// ConstructorArgs is the ABI encoding of the constructor arguments.
		ConstructorArgs []byte
	}

	Options struct {
		APIURL            string
		APIKey            string
		ChainID           int64
		PollInterval      time.Duration
		MaxPollAttempts   int
		RequestsPerSecond float64
		RequestTimeout    time.Duration
		// RetryCount bounds the retries of one request after a transport error, HTTP 5xx or 429,
		// an explorer rate limit or a deployment the explorer has not indexed yet.
		RetryCount       int
		RetryWaitTime    time.Duration
		RetryMaxWaitTime time.Duration
	}

	Client struct {
		http            *resty.Client
		apiURL          string
		apiKey          string
		chainID         int64
		limiter         *rate.Limiter
		pollInterval    time.Duration
		maxPollAttempts int
		logger          *slog.Logger
	}

	apiResponse struct {
		status  string
		message string
		result  string
	}

)

func New(opts Options) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	maxPollAttempts := opts.MaxPollAttempts
	if maxPollAttempts < 1 {
		maxPollAttempts = 1
	}

	c := &Client{
		apiURL:          opts.APIURL,
		apiKey:          opts.APIKey,
		chainID:         opts.ChainID,
		limiter:         rate.NewLimiter(limit, 1),
		pollInterval:    opts.PollInterval,
		maxPollAttempts: maxPollAttempts,
		logger:          logger.Named("explorer_client").With("api_url", opts.APIURL),
	}
	c.http = c.newHTTPClient(opts)

	return c
}

func (c *Client) newHTTPClient(opts Options) *resty.Client {
	retryCount := opts.RetryCount
	if retryCount <= 0 {
		retryCount = defaultRetryCount
	}
	waitTime := opts.RetryWaitTime
	if waitTime <= 0 {
		waitTime = defaultRetryWaitTime
	}
	maxWaitTime := opts.RetryMaxWaitTime
	if maxWaitTime < waitTime {
		maxWaitTime = max(defaultRetryMaxWaitTime, waitTime)
	}

	httpClient := resty.New().
		SetHeader("Accept", "application/json")
	if opts.RequestTimeout > 0 {
		httpClient.SetTimeout(opts.RequestTimeout)
	}

	// Every attempt, retries included, waits for the explorer rate limit.
	httpClient.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		return c.limiter.Wait(r.Context())
	})

	httpClient.
		SetRetryCount(retryCount).
		SetRetryWaitTime(waitTime).
		SetRetryMaxWaitTime(maxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if !isTransient(r, err) {
				return false
			}
			log := c.logger.With("method", r.Request.Method)
			if err != nil {
				log = log.With("err", err.Error())
			} else {
				log = log.With("status", r.StatusCode())
			}
			log.Debug("retrying explorer request")
			return true
		})

	return httpClient
}

// isTransient reports whether a request should be sent again.
func isTransient(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil {
		return false
	}
	if err != nil {
		return r.Request.Context().Err() == nil
	}
	if r.StatusCode() >= http.StatusInternalServerError || r.StatusCode() == http.StatusTooManyRequests {
		return true
	}
	if r.IsError() {
		return false
	}

	result := strings.ToLower(gjson.GetBytes(r.Body(), "result").String())
	// "unable to locate contractcode": the explorer has not indexed the deployment yet.
	return strings.Contains(result, "rate limit") || strings.Contains(result, "unable to locate contractcode")
}

// Verify submits req and waits until the explorer reaches a verdict. A contract that was
// verified before is reported as StatusAlreadyVerified, not as an error.
func (c *Client) Verify(ctx context.Context, req Request) (Status, error) {
	log := c.logger.With("address", req.Address.Hex()).With("contract", req.ContractName)

	guid, status, err := c.submit(ctx, req)
	if err != nil {
		return "", err
	}
	if status == StatusAlreadyVerified {
		log.Info("contract is already verified")
		return status, nil
	}

	log.With("guid", guid).Info("verification submitted")

	return c.poll(ctx, guid)
}

func (c *Client) submit(ctx context.Context, req Request) (string, Status, error) {
	form := map[string]string{
		"apikey":                c.apiKey,
		"module":                "contract",
		"action":                "verifysourcecode",
		"contractaddress":       req.Address.Hex(),
		"sourceCode":            req.StandardJSONInput,
		"codeformat":            codeFormatStandardJSON,
		"contractname":          req.ContractName,
		"compilerversion":       req.CompilerVersion,
		"constructorArguements": common.Bytes2Hex(req.ConstructorArgs),
	}

	resp, err := c.do(ctx, c.http.R().SetFormData(form), http.MethodPost)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	if isAlreadyVerified(resp.result) || isAlreadyVerified(resp.message) {
		return "", StatusAlreadyVerified, nil
	}
	if resp.status != "1" || resp.result == "" {
		return "", "", fmt.Errorf("%w: %s", ErrSubmission, resp.detail())
	}

	return resp.result, "", nil
}

func (c *Client) poll(ctx context.Context, guid string) (Status, error) {
	query := map[string]string{
		"apikey": c.apiKey,
		"module": "contract",
		"action": "checkverifystatus",
		"guid":   guid,
	}

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		if err := sleep(ctx, c.pollInterval); err != nil {
			return "", err
		}

		resp, err := c.do(ctx, c.http.R().SetQueryParams(query), http.MethodGet)
		if err != nil {
			return "", fmt.Errorf("failed to check verification status: %w", err)
		}

		result := strings.ToLower(resp.result)
		switch {
		case isAlreadyVerified(resp.result):
			return StatusAlreadyVerified, nil
		case strings.Contains(result, "pending"), strings.Contains(result, "in progress"):
			c.logger.With("guid", guid).With("attempt", attempt).Debug("verification pending")
		case strings.Contains(result, "pass"), resp.status == "1":
			return StatusVerified, nil
		default:
			return "", fmt.Errorf("%w: %s", ErrVerificationFailed, resp.detail())
		}
	}

	return "", fmt.Errorf("%w: still pending after %d status checks (guid %s)", ErrVerificationFailed, c.maxPollAttempts, guid)
}

// do sends one request. Transient failures are retried by the resty client; the errors
// returned here are the ones left after the last attempt.
func (c *Client) do(ctx context.Context, r *resty.Request, method string) (apiResponse, error) {
	if c.chainID != 0 {
		r.SetQueryParam("chainid", strconv.FormatInt(c.chainID, 10))
	}

	res, err := r.SetContext(ctx).Execute(method, c.apiURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return apiResponse{}, ctxErr
		}
		return apiResponse{}, fmt.Errorf("request to %s failed: %w", c.apiURL, err)
	}

	if res.IsError() {
		return apiResponse{}, fmt.Errorf("explorer returned HTTP %d: %s", res.StatusCode(), res.String())
	}

	body := res.Body()
	if !gjson.ValidBytes(body) {
		return apiResponse{}, fmt.Errorf("explorer returned a non-JSON body: %.200s", string(body))
	}

	parsed := apiResponse{
		status:  gjson.GetBytes(body, "status").String(),
		message: gjson.GetBytes(body, "message").String(),
		result:  gjson.GetBytes(body, "result").String(),
	}
	if strings.Contains(strings.ToLower(parsed.result), "rate limit") {
		return apiResponse{}, fmt.Errorf("explorer rate limit: %s", parsed.result)
	}

	return parsed, nil
}

func (r apiResponse) detail() string {
	if r.result == "" {
		return r.message
	}
	return r.result
}

func isAlreadyVerified(s string) bool {
	return strings.Contains(strings.ToLower(s), "already verified")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
