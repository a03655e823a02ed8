package codec

import (
	"encoding/json"
	"testing"
)

func TestDecodeTxEnvelope_OK(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":  "market/submit_news",
		"value": map[string]any{"provider": "alice", "newsHandle": []byte{1, 2}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	env, err := DecodeTxEnvelope(b)
	if err != nil {
		t.Fatalf("DecodeTxEnvelope: %v", err)
	}
	if env.Type != "market/submit_news" {
		t.Fatalf("unexpected type: %q", env.Type)
	}

	var v MarketSubmitNewsTx
	if err := json.Unmarshal(env.Value, &v); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if v.Provider != "alice" {
		t.Fatalf("unexpected value.provider: %q", v.Provider)
	}
}

func TestDecodeTxEnvelope_AuthFieldsOptional(t *testing.T) {
	// oracle/fulfill arrives unsigned; the envelope must decode without
	// nonce/signer/sig.
	b, err := json.Marshal(map[string]any{
		"type":  "oracle/fulfill",
		"value": map[string]any{"requestId": 7},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	env, err := DecodeTxEnvelope(b)
	if err != nil {
		t.Fatalf("DecodeTxEnvelope: %v", err)
	}
	if env.Signer != "" || len(env.Sig) != 0 {
		t.Fatalf("expected empty auth fields")
	}
}

func TestDecodeTxEnvelope_MissingType(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"value": map[string]any{"x": 1},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = DecodeTxEnvelope(b)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestDecodeTxEnvelope_InvalidJSON(t *testing.T) {
	_, err := DecodeTxEnvelope([]byte("{not json"))
	if err == nil {
		t.Fatalf("expected error")
	}
}
