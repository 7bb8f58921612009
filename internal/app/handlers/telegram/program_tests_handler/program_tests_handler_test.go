package program_tests_handler

import (
	"testing"

	"github.com/ddabattalion/examprep-bot/internal/api"
)

func TestTestCodec_RoundTrip(t *testing.T) {
	in := api.Test{ID: 7, Title: "NDA Mock | Paper 2", Duration: 90, TotalMarks: 120}

	out, err := DecodeTest(encodeTest(in))
	if err != nil {
		t.Fatalf("DecodeTest: %v", err)
	}
	if out.ID != 7 || out.Duration != 90 || out.TotalMarks != 120 {
		t.Errorf("decoded = %+v", out)
	}
	// The title is the last segment, so its own separators survive.
	if out.Title != "NDA Mock | Paper 2" {
		t.Errorf("title = %q", out.Title)
	}
}

func TestDecodeTest_Malformed(t *testing.T) {
	for _, data := range []string{"", "7", "7|90", "7|90|120", "x|90|120|T"} {
		if _, err := DecodeTest(data); err == nil {
			t.Errorf("DecodeTest(%q) accepted malformed data", data)
		}
	}
}
