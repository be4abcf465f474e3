package models

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func outputs(quantities ...string) []*CleaningOutput {
	var result []*CleaningOutput
	for i, q := range quantities {
		result = append(result, &CleaningOutput{SeedClassId: i + 1, OutputQuantity: dec(q)})
	}
	return result
}

func TestConservationExactMatch(t *testing.T) {
	// 50 + 10 == 60
	if err := checkConservation(dec("60"), outputs("50"), dec("10")); err != nil {
		t.Errorf("exact balance should pass, got %v", err)
	}
	// zero waste is fine
	if err := checkConservation(dec("60"), outputs("40", "20"), dec("0")); err != nil {
		t.Errorf("exact balance with zero waste should pass, got %v", err)
	}
	// fractional quantities must balance exactly, no epsilon
	if err := checkConservation(dec("100.5"), outputs("80.25", "15.25"), dec("5")); err != nil {
		t.Errorf("exact fractional balance should pass, got %v", err)
	}
}

func TestConservationShortfall(t *testing.T) {
	err := checkConservation(dec("60"), outputs("50"), dec("5"))
	if err == nil {
		t.Fatal("55 of 60 accounted must fail")
	}
	var cerr *utils.ConservationError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConservationError, got %T", err)
	}
	if !cerr.InputQuantity.Equal(dec("60")) || !cerr.Accounted.Equal(dec("55")) {
		t.Errorf("error should carry input=60 accounted=55, got input=%s accounted=%s",
			cerr.InputQuantity, cerr.Accounted)
	}
}

func TestConservationExcess(t *testing.T) {
	err := checkConservation(dec("60"), outputs("50"), dec("15"))
	if err == nil {
		t.Fatal("65 of 60 accounted must fail")
	}
	var cerr *utils.ConservationError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConservationError, got %T", err)
	}
	if !cerr.Accounted.Equal(dec("65")) {
		t.Errorf("error should carry accounted=65, got %s", cerr.Accounted)
	}
}

func TestConservationRejectsFloatStyleDrift(t *testing.T) {
	// the classic 0.1 + 0.2 case: decimals make this exact
	if err := checkConservation(dec("0.3"), outputs("0.1"), dec("0.2")); err != nil {
		t.Errorf("0.1 + 0.2 must equal 0.3 exactly, got %v", err)
	}
	if err := checkConservation(dec("0.3"), outputs("0.1"), dec("0.20001")); err == nil {
		t.Error("a 0.00001 kg mismatch must fail")
	}
}
