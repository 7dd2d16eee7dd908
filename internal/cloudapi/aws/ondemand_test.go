package aws

import "testing"

const samplePriceList = `{
  "product": {"productFamily": "Compute Instance", "attributes": {"instanceType": "c3.large"}},
  "terms": {
    "OnDemand": {
      "ABC123.JRTCKXETXF": {
        "offerTermCode": "JRTCKXETXF",
        "priceDimensions": {
          "ABC123.JRTCKXETXF.6YS6EN2CT7": {
            "unit": "Hrs",
            "pricePerUnit": {"USD": "0.1050000000"}
          }
        },
        "termAttributes": {}
      }
    }
  }
}`

func TestParseOnDemandPrice(t *testing.T) {
	price, err := parseOnDemandPrice(samplePriceList)
	if err != nil {
		t.Fatalf("parseOnDemandPrice: %v", err)
	}
	if price != 0.105 {
		t.Errorf("price = %v, want 0.105", price)
	}
}

func TestParseOnDemandPricePicksLowestPositive(t *testing.T) {
	payload := `{
	  "terms": {
	    "OnDemand": {
	      "a": {"priceDimensions": {"d1": {"pricePerUnit": {"USD": "0.0000000000"}}}},
	      "b": {"priceDimensions": {"d2": {"pricePerUnit": {"USD": "0.2500000000"}}}},
	      "c": {"priceDimensions": {"d3": {"pricePerUnit": {"USD": "0.1200000000"}}}}
	    }
	  }
	}`

	price, err := parseOnDemandPrice(payload)
	if err != nil {
		t.Fatalf("parseOnDemandPrice: %v", err)
	}
	if price != 0.12 {
		t.Errorf("price = %v, want 0.12", price)
	}
}

func TestParseOnDemandPriceErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "{"},
		{"no terms", `{"terms": {"OnDemand": {}}}`},
		{"no USD", `{"terms": {"OnDemand": {"a": {"priceDimensions": {"d": {"pricePerUnit": {"CNY": "1.0"}}}}}}}`},
		{"zero only", `{"terms": {"OnDemand": {"a": {"priceDimensions": {"d": {"pricePerUnit": {"USD": "0"}}}}}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseOnDemandPrice(tc.payload); err == nil {
				t.Error("expected error")
			}
		})
	}
}
