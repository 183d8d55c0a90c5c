package primus

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	mockGatewayUrl = "https://gateway.primus.test"
	appSecret      = "0x98403619ece7e0d9130cca06d671d4691705d752bf920921042c23c6f35f9665"
	userAddress    = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

func setup(t *testing.T, attestorAddresses []string) *Client {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	client, err := NewClient(&PrimusClientConfig{
		BaseUrl:           mockGatewayUrl,
		AppId:             "0xfd63ad5b744ad14b9c21bc21c3528a7672209179",
		AppSecret:         appSecret,
		AttestorAddresses: attestorAddresses,
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	client.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})
	return client
}

func signedAttestation(t *testing.T, data string) (*Attestation, string) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	attestor := crypto.PubkeyToAddress(key.PublicKey).Hex()
	att := &Attestation{
		Recipient: userAddress,
		RequestId: "req-1",
		Data:      data,
		Timestamp: 1700000000000,
		Attestors: []Attestor{{AttestorAddr: attestor}},
	}
	sig, err := crypto.Sign(AttestationDigest(att), key)
	if err != nil {
		t.Fatal(err)
	}
	att.Signatures = []string{hexutil.Encode(sig)}
	return att, attestor
}

func Test_PrimusClient(t *testing.T) {
	t.Run("Should reject a malformed app secret", func(t *testing.T) {
		_, err := NewClient(&PrimusClientConfig{AppSecret: "not-a-key"}, zap.NewNop())
		assert.NotNil(t, err)
	})

	t.Run("Should initialize against the gateway", func(t *testing.T) {
		client := setup(t, nil)
		httpmock.RegisterResponder("POST", mockGatewayUrl+initPath,
			httpmock.NewStringResponder(200, `{"rc":0,"msg":"ok","result":true}`))

		assert.Nil(t, client.Init(context.Background()))
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})

	t.Run("Should fail init when the gateway rejects the app", func(t *testing.T) {
		client := setup(t, nil)
		httpmock.RegisterResponder("POST", mockGatewayUrl+initPath,
			httpmock.NewStringResponder(200, `{"rc":-1002001,"msg":"invalid appId"}`))

		err := client.Init(context.Background())
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "invalid appId")
	})

	t.Run("Should sign a request with the app key", func(t *testing.T) {
		client := setup(t, nil)
		req := client.GenerateRequestParams("7f306580-f728-48e3-b97e-b965743c6803", userAddress)
		req.SetAttMode(AttMode{AlgorithmType: AttMode_ProxyTls})
		assert.NotEmpty(t, req.RequestId)

		reqStr, err := req.ToJsonString()
		assert.Nil(t, err)

		signed, err := client.Sign(reqStr)
		assert.Nil(t, err)

		sig, err := hexutil.Decode(signed.AppSignature)
		assert.Nil(t, err)
		pub, err := crypto.SigToPub(crypto.Keccak256([]byte(reqStr)), sig)
		assert.Nil(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(client.appKey.PublicKey), crypto.PubkeyToAddress(*pub))
	})

	t.Run("Should start an attestation and verify it", func(t *testing.T) {
		att, attestor := signedAttestation(t, `{"aqi":"75"}`)
		client := setup(t, []string{attestor})

		result, _ := json.Marshal(att)
		httpmock.RegisterResponder("POST", mockGatewayUrl+attestationPath,
			httpmock.NewStringResponder(200, `{"rc":0,"msg":"ok","result":`+string(result)+`}`))

		signed, err := client.Sign(`{"appId":"x"}`)
		assert.Nil(t, err)

		got, err := client.StartAttestation(context.Background(), signed)
		assert.Nil(t, err)
		assert.Equal(t, `{"aqi":"75"}`, got.Data)

		ok, err := client.VerifyAttestation(got)
		assert.Nil(t, err)
		assert.True(t, ok)
	})

	t.Run("Should refuse attestations from unknown attestors", func(t *testing.T) {
		att, _ := signedAttestation(t, `{"aqi":"75"}`)
		client := setup(t, []string{"0xdb736b13e2f522dbe18b2015d0291e4b193d8ef6"})

		ok, err := client.VerifyAttestation(att)
		assert.Nil(t, err)
		assert.False(t, ok)
	})

	t.Run("Should not trust the attestors an attestation lists for itself", func(t *testing.T) {
		att, _ := signedAttestation(t, `{"aqi":"150"}`)
		client := setup(t, nil)

		ok, err := client.VerifyAttestation(att)
		assert.ErrorIs(t, err, ErrNoTrustedAttestors)
		assert.False(t, ok)

		client = setup(t, []string{""})
		ok, err = client.VerifyAttestation(att)
		assert.ErrorIs(t, err, ErrNoTrustedAttestors)
		assert.False(t, ok)
	})

	t.Run("Should refuse tampered attestation data", func(t *testing.T) {
		att, attestor := signedAttestation(t, `{"aqi":"75"}`)
		client := setup(t, []string{attestor})

		att.Data = `{"aqi":"10"}`
		ok, err := client.VerifyAttestation(att)
		assert.Nil(t, err)
		assert.False(t, ok)
	})
}
