package cursor

import "testing"

func TestRoundTrip(t *testing.T) {
	token, err := Encode(Cursor{Seq: 42, CampaignID: "camp-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(token, "camp-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Seq != 42 {
		t.Fatalf("Seq = %d, want 42", got.Seq)
	}
}

func TestDecodeEmptyTokenStartsAtZero(t *testing.T) {
	got, err := Decode("", "camp-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Seq != 0 {
		t.Fatalf("Seq = %d, want 0", got.Seq)
	}
}

func TestDecodeRejectsForeignCampaign(t *testing.T) {
	token, err := Encode(Cursor{Seq: 10, CampaignID: "camp-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(token, "camp-2"); err == nil {
		t.Fatal("expected error for token from another campaign")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("not-base64!!", "camp-1"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
