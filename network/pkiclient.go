package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeeLiangmin/crate-spec/auth"
	cratehttp "github.com/LeeLiangmin/crate-spec/http"
	"github.com/LeeLiangmin/crate-spec/observability"
	"github.com/LeeLiangmin/crate-spec/resilience"
)

// DefaultHTTPTimeout bounds the discovery/keypair-fetch REST calls,
// mirroring original_source's DEFAULT_HTTP_TIMEOUT_SECS.
const DefaultHTTPTimeout = 30 * time.Second

const (
	signDigestMethod   = "/cratespec.pki.PKIService/SignDigest"
	verifyDigestMethod = "/cratespec.pki.PKIService/VerifyDigest"
)

// PKIClientConfig configures a PKIClient.
type PKIClientConfig struct {
	// DiscoveryURL is the base REST URL for the keypair-issuance and health
	// endpoints (e.g. "https://pki.example.internal").
	DiscoveryURL string

	// GRPCTarget is the dial target for the signing/verification RPCs (e.g.
	// "pki.example.internal:443").
	GRPCTarget string

	// Insecure disables transport credentials on the gRPC connection, for
	// local development or test doubles. Production targets should supply
	// TLS credentials via TLSCredentials instead.
	Insecure bool

	// TLSCredentials, when set, are used for the gRPC connection instead of
	// insecure credentials.
	TLSCredentials credentials.TransportCredentials

	// BearerToken, when set, authenticates the REST discovery/keypair-issuance
	// calls (the gRPC sign/verify RPCs are authenticated by the keypair
	// material itself, not this token).
	BearerToken string

	RetryConfig   *cratehttp.RetryConfig
	BreakerConfig resilience.CircuitBreakerConfig

	// RateLimit bounds how often each distinct operation (keypair
	// discovery, sign, verify) may be invoked. Each operation gets its own
	// token bucket, keyed by method name, so a burst of signing calls never
	// starves verification or vice versa.
	RateLimit resilience.TokenBucketConfig
}

// DefaultPKIClientConfig returns sensible defaults for RetryConfig and
// BreakerConfig, following the teacher's retry/circuit-breaker defaults
// rather than original_source's fixed linear DEFAULT_RETRY_TIMES/DELAY_MS.
func DefaultPKIClientConfig(discoveryURL, grpcTarget string) PKIClientConfig {
	return PKIClientConfig{
		DiscoveryURL:  discoveryURL,
		GRPCTarget:    grpcTarget,
		RetryConfig:   cratehttp.DefaultRetryConfig(),
		BreakerConfig: resilience.DefaultCircuitBreakerConfig(),
		RateLimit:     resilience.DefaultTokenBucketConfig(),
	}
}

// PKIClient talks to a remote PKI platform: REST for discovery/keypair
// issuance (original_source's reqwest-based PkiClient), gRPC with
// structpb.Struct envelopes for the sign/verify control plane (an
// enrichment over the original, since no protoc invocation is available to
// generate typed stubs here and structpb gives a typed-enough client
// without one).
type PKIClient struct {
	httpClient *http.Client
	grpcConn   *grpc.ClientConn

	discoveryURL string
	authn        auth.Authenticator
	retry        *cratehttp.RetryConfig
	breaker      *resilience.CircuitBreaker
	limiter      *resilience.PerSourceLimiter
}

// NewPKIClient dials the PKI platform's gRPC endpoint and prepares the REST
// client for discovery calls.
func NewPKIClient(cfg PKIClientConfig) (*PKIClient, error) {
	creds := cfg.TLSCredentials
	if creds == nil {
		if !cfg.Insecure {
			return nil, fmt.Errorf("pkiclient: TLSCredentials required unless Insecure is set")
		}
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(cfg.GRPCTarget, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("pkiclient: dialing %s: %w", cfg.GRPCTarget, err)
	}

	retryCfg := cfg.RetryConfig
	if retryCfg == nil {
		retryCfg = cratehttp.DefaultRetryConfig()
	}
	breakerCfg := cfg.BreakerConfig
	if breakerCfg.MaxFailures == 0 {
		breakerCfg = resilience.DefaultCircuitBreakerConfig()
	}
	rateCfg := cfg.RateLimit
	if rateCfg.Capacity == 0 {
		rateCfg = resilience.DefaultTokenBucketConfig()
	}

	return &PKIClient{
		httpClient:   NewDefaultHTTPClient(),
		grpcConn:     conn,
		discoveryURL: cfg.DiscoveryURL,
		authn:        auth.NewBearerAuthenticator(cfg.BearerToken),
		retry:        retryCfg,
		breaker:      resilience.NewCircuitBreaker(breakerCfg),
		limiter:      resilience.NewPerSourceLimiter(rateCfg),
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *PKIClient) Close() error {
	return c.grpcConn.Close()
}

// keypairRequest/keypairResponse mirror original_source's KeyPairRequest /
// KeyPairResponse JSON shapes field-for-field.
type keypairRequest struct {
	Algo string `json:"algo"`
	KMS  string `json:"kms"`
	Flow string `json:"flow"`
}

type keypairResponse struct {
	BaseConfig BaseConfig `json:"base_config"`
	PrivKey    string     `json:"priv"`
	PubKey     string     `json:"pub"`
	KeyID      string     `json:"keyId"`
}

// FetchKeyPair issues a new keypair from the PKI platform's REST discovery
// endpoint (original_source's KeyPair::fetch_from_pki).
func (c *PKIClient) FetchKeyPair(cfg BaseConfig) (*KeyPair, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultHTTPTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx, "discovery"); err != nil {
		return nil, fmt.Errorf("rate limiting keypair request: %w", err)
	}

	body, err := json.Marshal(keypairRequest{Algo: cfg.Algo, KMS: cfg.KMS, Flow: cfg.Flow})
	if err != nil {
		return nil, fmt.Errorf("encoding keypair request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.discoveryURL+"/v1/keypair", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building keypair request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authn.Authenticate(req); err != nil {
		return nil, fmt.Errorf("authenticating keypair request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keypair request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pki platform returned HTTP %d", resp.StatusCode)
	}

	var kr keypairResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return nil, fmt.Errorf("decoding keypair response: %w", err)
	}

	return &KeyPair{
		PrivKey:    kr.PrivKey,
		PubKey:     kr.PubKey,
		KeyID:      kr.KeyID,
		BaseConfig: kr.BaseConfig,
	}, nil
}

// SignDigest calls the PKI platform's signing RPC for digestHex (lowercase
// hex, per digestToHexString), retrying network-level failures with the
// teacher's exponential-backoff-with-jitter policy and failing fast via the
// circuit breaker once the platform looks unhealthy. It returns the
// signature and, if the platform issued one, an accompanying certificate —
// both hex/PEM-ish opaque strings exactly as the platform returns them.
func (c *PKIClient) SignDigest(ctx context.Context, kp *KeyPair, digestHex string) (signature string, cert string, err error) {
	req, err := structpb.NewStruct(map[string]any{
		"base_config": baseConfigToMap(kp.BaseConfig),
		"priv":        kp.PrivKey,
		"digest":      digestHex,
	})
	if err != nil {
		return "", "", fmt.Errorf("building sign request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.invokeWithResilience(ctx, signDigestMethod, req, resp); err != nil {
		observability.RemoteSignRequestsTotal.WithLabelValues("failure").Inc()
		return "", "", err
	}
	observability.RemoteSignRequestsTotal.WithLabelValues("success").Inc()

	fields := resp.GetFields()
	signature = fields["signature"].GetStringValue()
	if certVal, ok := fields["cert"]; ok {
		cert = certVal.GetStringValue()
	}
	return signature, cert, nil
}

// VerifyDigest calls the PKI platform's verification RPC and reports
// whether the signature is valid for digestHex under pubKey.
func (c *PKIClient) VerifyDigest(ctx context.Context, pubKey, digestHex, signature string, cfg BaseConfig) (bool, error) {
	req, err := structpb.NewStruct(map[string]any{
		"base_config": baseConfigToMap(cfg),
		"pub":         pubKey,
		"digest":      digestHex,
		"signature":   signature,
	})
	if err != nil {
		return false, fmt.Errorf("building verify request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.invokeWithResilience(ctx, verifyDigestMethod, req, resp); err != nil {
		return false, err
	}

	fields := resp.GetFields()
	result := fields["result"].GetStringValue()
	if result == "OK" {
		return true, nil
	}

	if errVal, ok := fields["error"]; ok && errVal.GetStringValue() != "" {
		return false, fmt.Errorf("pki platform rejected signature: %s", errVal.GetStringValue())
	}
	return false, fmt.Errorf("pki platform rejected signature")
}

// invokeWithResilience wraps a single unary RPC in the circuit breaker and
// the teacher's retry policy. Only transport-level failures (the RPC never
// reaching or returning from the platform) are retried; an RPC that
// completes with an application-level rejection is returned as-is,
// mirroring original_source's "a response, regardless of status, is never
// retried" rule.
func (c *PKIClient) invokeWithResilience(ctx context.Context, method string, req, resp *structpb.Struct) error {
	if err := c.limiter.Wait(ctx, method); err != nil {
		return fmt.Errorf("rate limiting pki platform rpc %s: %w", method, err)
	}

	if err := c.breaker.CanExecute(); err != nil {
		return fmt.Errorf("pki platform circuit open: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		lastErr = c.grpcConn.Invoke(ctx, method, req, resp)
		if lastErr == nil {
			c.breaker.RecordSuccess()
			return nil
		}

		if !isRetriableGRPCError(lastErr) || attempt == c.retry.MaxRetries {
			c.breaker.RecordFailure()
			return fmt.Errorf("pki platform rpc %s failed: %w", method, lastErr)
		}

		observability.RecordRetry(ctx, attempt+1, lastErr)
		backoff := c.retry.CalculateBackoff(attempt)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			c.breaker.RecordFailure()
			return ctx.Err()
		}
	}

	c.breaker.RecordFailure()
	return fmt.Errorf("pki platform rpc %s failed after %d retries: %w", method, c.retry.MaxRetries, lastErr)
}

// isRetriableGRPCError reports whether err is a transport-level gRPC
// failure (unreachable, timed out, aborted mid-flight) as opposed to an
// application-level rejection the platform deliberately returned.
func isRetriableGRPCError(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func baseConfigToMap(cfg BaseConfig) map[string]any {
	return map[string]any{
		"algo": cfg.Algo,
		"kms":  cfg.KMS,
		"flow": cfg.Flow,
	}
}
