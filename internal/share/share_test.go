package share

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kokistudios/trekicon/internal/selection"
)

func sample() selection.State {
	return selection.State{
		Version:       selection.SchemaVersion,
		BodyShape:     "humanoid",
		Species:       "tellarite",
		Ears:          "round",
		TellariteNose: "tellarite-nose-snw",
		Tusks:         true,
		Hair:          "bun",
		RearHair:      "none",
		FacialHair:    "beard",
		HairMirror:    true,
		HeadFeatures:  []string{"freckles"},
		Jewelry:       []string{},
		Eyewear:       "goggles",
		Uniform:       "ds9",
		UniformColor:  "modern-sciences",
		BodyColor:     "custom",
		BodyColorHex:  "#a1b2c3",
		HairColor:     "grey",
		TuftSync:      true,
	}
}

func TestRoundTrip(t *testing.T) {
	st := sample()
	token, err := Encode(st)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("token is not URL safe: %s", token)
	}
	got, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, st) {
		t.Errorf("round trip mismatch\n got %+v\nwant %+v", got, st)
	}
}

func TestRoundTrip_NilLists(t *testing.T) {
	st := sample()
	st.HeadFeatures = nil
	token, err := Encode(st)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, st) {
		t.Errorf("round trip mismatch\n got %+v\nwant %+v", got, st)
	}
}

func TestDecode_FromURL(t *testing.T) {
	token, err := Encode(sample())
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range []string{
		URL("https://icons.example/share/", token),
		"https://icons.example/s/" + token,
		"  " + token + "\n",
	} {
		if _, err := Decode(in); err != nil {
			t.Errorf("Decode(%q): %v", in, err)
		}
	}
}

func TestDecode_Legacy(t *testing.T) {
	var buf bytes.Buffer
	zw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	zw.Write([]byte(`{"bodyShape":"human","features":["scar"]}`))
	zw.Close()
	st, err := Decode(base64.RawURLEncoding.EncodeToString(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if st.BodyShape != "humanoid" || !reflect.DeepEqual(st.Jewelry, []string{"scar"}) {
		t.Errorf("legacy token not migrated: %+v", st)
	}
}

func TestDecode_Bad(t *testing.T) {
	for _, in := range []string{"", "!!!", "aGVsbG8", strings.Repeat("a", MaxTokenLen+1)} {
		if _, err := Decode(in); !errors.Is(err, ErrBadToken) {
			t.Errorf("Decode(%.20q) err = %v", in, err)
		}
	}
}
