package primus

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"go.uber.org/zap"
)

const (
	AttMode_ProxyTls = "proxytls"

	initPath        = "/v1/app/init"
	attestationPath = "/v1/attestation"
)

type PrimusClientConfig struct {
	BaseUrl           string
	AppId             string
	AppSecret         string
	AttestorAddresses []string
	Timeout           time.Duration
}

func ConvertGlobalConfigToPrimusConfig(cfg *config.PrimusConfig) *PrimusClientConfig {
	return &PrimusClientConfig{
		BaseUrl:           strings.TrimRight(cfg.Url, "/"),
		AppId:             cfg.AppId,
		AppSecret:         cfg.AppSecret,
		AttestorAddresses: cfg.AttestorAddresses,
		Timeout:           cfg.AttestationTimeout,
	}
}

type AttMode struct {
	AlgorithmType string `json:"algorithmType"`
}

// AttestationRequest binds a template to the wallet address the proof is issued for.
type AttestationRequest struct {
	AppId       string  `json:"appId"`
	TemplateId  string  `json:"attTemplateID"`
	UserAddress string  `json:"userAddress"`
	RequestId   string  `json:"requestid"`
	Timestamp   int64   `json:"timestamp"`
	AttMode     AttMode `json:"attMode"`
}

func (r *AttestationRequest) SetAttMode(mode AttMode) {
	r.AttMode = mode
}

func (r *AttestationRequest) ToJsonString() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type SignedRequest struct {
	AttRequest   json.RawMessage `json:"attRequest"`
	AppSignature string          `json:"appSignature"`
}

type Attestor struct {
	AttestorAddr string `json:"attestorAddr"`
	Url          string `json:"url"`
}

type Attestation struct {
	Recipient  string     `json:"recipient"`
	RequestId  string     `json:"requestid"`
	Data       string     `json:"data"`
	Timestamp  int64      `json:"timestamp"`
	Attestors  []Attestor `json:"attestors"`
	Signatures []string   `json:"signatures"`
}

type responseEnvelope struct {
	Rc     int             `json:"rc"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *PrimusClientConfig
	appKey       *ecdsa.PrivateKey
}

func NewClient(cfg *PrimusClientConfig, l *zap.Logger) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.AppSecret, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid app secret")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	return &Client{
		Logger:       l,
		httpClient:   &http.Client{Timeout: timeout},
		clientConfig: cfg,
		appKey:       key,
	}, nil
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// Init registers the application identity with the attestation gateway.
func (c *Client) Init(ctx context.Context) error {
	body := map[string]string{
		"appId":      c.clientConfig.AppId,
		"appAddress": crypto.PubkeyToAddress(c.appKey.PublicKey).Hex(),
	}
	if _, err := c.post(ctx, initPath, body); err != nil {
		return errors.Wrap(err, "failed to initialize attestation client")
	}
	c.Logger.Sugar().Infow("Attestation client initialized", zap.String("appId", c.clientConfig.AppId))
	return nil
}

func (c *Client) GenerateRequestParams(templateId string, userAddress string) *AttestationRequest {
	return &AttestationRequest{
		AppId:       c.clientConfig.AppId,
		TemplateId:  templateId,
		UserAddress: userAddress,
		RequestId:   uuid.New().String(),
		Timestamp:   time.Now().UnixMilli(),
	}
}

// Sign signs the serialized request with the application key.
func (c *Client) Sign(requestStr string) (*SignedRequest, error) {
	sig, err := crypto.Sign(crypto.Keccak256([]byte(requestStr)), c.appKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign attestation request")
	}
	return &SignedRequest{
		AttRequest:   json.RawMessage(requestStr),
		AppSignature: hexutil.Encode(sig),
	}, nil
}

func (c *Client) StartAttestation(ctx context.Context, signed *SignedRequest) (*Attestation, error) {
	res, err := c.post(ctx, attestationPath, signed)
	if err != nil {
		return nil, errors.Wrap(err, "attestation failed")
	}
	att := &Attestation{}
	if err := json.Unmarshal(res, att); err != nil {
		return nil, errors.Wrap(err, "failed to decode attestation")
	}
	return att, nil
}

// AttestationDigest is the hash attestors sign over.
func AttestationDigest(att *Attestation) []byte {
	return crypto.Keccak256(
		[]byte(utils.NormalizeAddress(att.Recipient)),
		[]byte(att.RequestId),
		[]byte(att.Data),
		[]byte(fmt.Sprintf("%d", att.Timestamp)),
	)
}

var ErrNoTrustedAttestors = errors.New("no trusted attestors configured")

// VerifyAttestation reports whether any signature recovers to a configured
// attestor. The attestors listed in the attestation itself are never trusted.
func (c *Client) VerifyAttestation(att *Attestation) (bool, error) {
	if att == nil {
		return false, errors.New("attestation is nil")
	}
	trusted := map[string]bool{}
	for _, a := range c.clientConfig.AttestorAddresses {
		if a = strings.TrimSpace(a); a != "" {
			trusted[utils.NormalizeAddress(a)] = true
		}
	}
	if len(trusted) == 0 {
		return false, ErrNoTrustedAttestors
	}

	digest := AttestationDigest(att)
	for _, s := range att.Signatures {
		sig, err := hexutil.Decode(s)
		if err != nil {
			c.Logger.Sugar().Debugw("Skipping malformed attestation signature", zap.Error(err))
			continue
		}
		if len(sig) == crypto.SignatureLength && sig[crypto.RecoveryIDOffset] >= 27 {
			sig[crypto.RecoveryIDOffset] -= 27
		}
		pub, err := crypto.SigToPub(digest, sig)
		if err != nil {
			c.Logger.Sugar().Debugw("Failed to recover attestation signer", zap.Error(err))
			continue
		}
		if trusted[utils.NormalizeAddress(crypto.PubkeyToAddress(*pub).Hex())] {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl+path, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("Failed to make request %s", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("Request failed %s", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("Failed to read body %s", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received http error code %+v", response.StatusCode)
	}

	envelope := &responseEnvelope{}
	if err := json.Unmarshal(responseBody, envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %s", err)
	}
	if envelope.Rc != 0 {
		return nil, fmt.Errorf("gateway returned rc=%d: %s", envelope.Rc, envelope.Msg)
	}
	return envelope.Result, nil
}
