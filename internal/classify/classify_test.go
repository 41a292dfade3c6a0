package classify

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/beevik/etree"

	"github.com/sitemaptools/sitemapctl/internal/transport"
)

func completed(contentType string, body string) *transport.Exchange {
	return transport.NewCompletedExchange(http.StatusOK, contentType, []byte(body))
}

func TestClassifyXMLMatchesDirectParse(t *testing.T) {
	body := `<SiteSettings last_modified="100"><GlobalSetting max_url_life="365"/></SiteSettings>`

	dec, err := Classify(completed("text/xml; charset=utf-8", body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Kind != XML {
		t.Fatalf("kind = %v, want XML", dec.Kind)
	}

	want := etree.NewDocument()
	if err := want.ReadFromString(body); err != nil {
		t.Fatalf("reference parse: %v", err)
	}

	gotStr, _ := dec.Doc.WriteToString()
	wantStr, _ := want.WriteToString()
	if gotStr != wantStr {
		t.Errorf("document mismatch:\ngot  %s\nwant %s", gotStr, wantStr)
	}

	root := dec.Doc.Root()
	if root.Tag != "SiteSettings" {
		t.Errorf("root tag = %q", root.Tag)
	}
	if root.SelectAttrValue("last_modified", "") != "100" {
		t.Errorf("last_modified = %q", root.SelectAttrValue("last_modified", ""))
	}
}

func TestClassifyEmptyXMLBodyIsEmptyNotError(t *testing.T) {
	for _, ct := range []string{"text/xml", "text/xml; charset=utf-8"} {
		dec, err := Classify(completed(ct, ""))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", ct, err)
		}
		if dec.Kind != Empty {
			t.Errorf("%s: kind = %v, want Empty", ct, dec.Kind)
		}
	}
}

func TestClassifyIncompleteExchangeIsEmpty(t *testing.T) {
	dec, err := Classify(&transport.Exchange{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Kind != Empty {
		t.Errorf("kind = %v, want Empty", dec.Kind)
	}
}

func TestClassifyMalformedXMLIsError(t *testing.T) {
	_, err := Classify(completed("text/xml", "<unclosed"))
	if err == nil {
		t.Fatal("expected parse error for malformed xml")
	}
}

func TestClassifyScriptTypesUseStrictJSON(t *testing.T) {
	for _, ct := range []string{
		"text/json",
		"text/javascript",
		"application/javascript",
		"application/x-javascript",
	} {
		dec, err := Classify(completed(ct, `{"success": true, "count": 3}`))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", ct, err)
		}
		if dec.Kind != Value {
			t.Fatalf("%s: kind = %v, want Value", ct, dec.Kind)
		}
		m, ok := dec.Val.(map[string]any)
		if !ok {
			t.Fatalf("%s: value type %T", ct, dec.Val)
		}
		if m["success"] != true {
			t.Errorf("%s: success = %v", ct, m["success"])
		}
	}

	// Anything that is not a JSON literal must be rejected, never evaluated.
	if _, err := Classify(completed("text/javascript", `alert("hi")`)); err == nil {
		t.Error("expected decode error for non-JSON script body")
	}
}

func TestClassifyOtherTypesAreVerbatimText(t *testing.T) {
	dec, err := Classify(completed("text/plain; charset=utf-8", "Settings is out-of-date"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Kind != Text {
		t.Fatalf("kind = %v, want Text", dec.Kind)
	}
	if dec.Text != "Settings is out-of-date" {
		t.Errorf("text = %q", dec.Text)
	}
}

func TestClassifyIsPure(t *testing.T) {
	ex := completed("text/plain", "150")
	a, errA := Classify(ex)
	b, errB := Classify(ex)
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v, %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated classification differs: %#v vs %#v", a, b)
	}
}
