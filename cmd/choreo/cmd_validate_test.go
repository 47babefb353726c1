package main

import "testing"

func TestRunValidateAcceptsGoldenFixture(t *testing.T) {
	validateFile = "../../testdata/hello.chor"
	defer func() { validateFile = "" }()

	if err := runValidate(nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunValidateRejectsMissingFile(t *testing.T) {
	validateFile = "../../testdata/does-not-exist.chor"
	defer func() { validateFile = "" }()

	if err := runValidate(nil, nil); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
