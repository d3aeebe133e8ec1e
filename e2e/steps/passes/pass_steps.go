package passes

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(ctx context.Context, method, path string, body any, headers map[string]string) error
	Status() int
	Body() []byte
	JSONField(field string) (any, error)
	Set(name, value string)
	Get(name string) string
}

// RegisterSteps registers pass enrollment and device sync steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &passSteps{tc: tc}

	ctx.Step(`^I enroll with the test identity$`, steps.enroll)
	ctx.Step(`^I enroll with id "([^"]*)" and pin "([^"]*)"$`, steps.enrollWith)
	ctx.Step(`^I download the enrolled pass$`, steps.download)
	ctx.Step(`^device "([^"]*)" registers for the pass with push token "([^"]*)"$`, steps.register)
	ctx.Step(`^device "([^"]*)" registers for the pass without credentials$`, steps.registerWithoutAuth)
	ctx.Step(`^device "([^"]*)" unregisters from the pass$`, steps.unregister)
	ctx.Step(`^device "([^"]*)" lists its passes$`, steps.list)
	ctx.Step(`^device "([^"]*)" lists passes updated since "([^"]*)"$`, steps.listSince)
	ctx.Step(`^the device fetches the pass$`, steps.fetch)
	ctx.Step(`^the device fetches the pass if modified since "([^"]*)"$`, steps.fetchIfModifiedSince)
	ctx.Step(`^I scan the enrolled pass$`, steps.scan)
	ctx.Step(`^the response should be the pass serial number$`, steps.bodyIsSerial)
}

type passSteps struct {
	tc TestContext
}

func (s *passSteps) enroll(ctx context.Context) error {
	id, pin := os.Getenv("MOBILID_E2E_ID"), os.Getenv("MOBILID_E2E_PIN")
	if id == "" || pin == "" {
		return godog.ErrPending
	}
	return s.enrollWith(ctx, id, pin)
}

func (s *passSteps) enrollWith(ctx context.Context, id, pin string) error {
	if err := s.tc.Do(ctx, http.MethodPost, "/enroll", map[string]string{"id": id, "pin": pin}, nil); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusOK && s.tc.Status() != http.StatusCreated {
		return nil
	}
	hash, err := s.tc.JSONField("passHash")
	if err != nil {
		return err
	}
	s.tc.Set("passHash", fmt.Sprint(hash))
	return nil
}

// download fetches the enrolled archive and remembers the identifiers a
// device would read out of pass.json.
func (s *passSteps) download(ctx context.Context) error {
	if err := s.tc.Do(ctx, http.MethodGet, "/download/{passHash}", nil, nil); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusOK {
		return fmt.Errorf("download status %d", s.tc.Status())
	}
	doc, err := readPassJSON(s.tc.Body())
	if err != nil {
		return err
	}
	s.tc.Set("serial", doc.SerialNumber)
	s.tc.Set("passType", doc.PassTypeIdentifier)
	s.tc.Set("authToken", doc.AuthenticationToken)
	return nil
}

func (s *passSteps) auth() map[string]string {
	return map[string]string{"Authorization": "ApplePass {authToken}"}
}

func (s *passSteps) register(ctx context.Context, device, pushToken string) error {
	return s.tc.Do(ctx, http.MethodPost, "/v1/devices/"+device+"/registrations/{passType}/{serial}",
		map[string]string{"pushToken": pushToken}, s.auth())
}

func (s *passSteps) registerWithoutAuth(ctx context.Context, device string) error {
	return s.tc.Do(ctx, http.MethodPost, "/v1/devices/"+device+"/registrations/{passType}/{serial}",
		map[string]string{"pushToken": "push-" + device}, nil)
}

func (s *passSteps) unregister(ctx context.Context, device string) error {
	return s.tc.Do(ctx, http.MethodDelete, "/v1/devices/"+device+"/registrations/{passType}/{serial}", nil, s.auth())
}

func (s *passSteps) list(ctx context.Context, device string) error {
	return s.tc.Do(ctx, http.MethodGet, "/v1/devices/"+device+"/registrations/{passType}", nil, nil)
}

func (s *passSteps) listSince(ctx context.Context, device, since string) error {
	return s.tc.Do(ctx, http.MethodGet, "/v1/devices/"+device+"/registrations/{passType}?passesUpdatedSince="+since, nil, nil)
}

func (s *passSteps) fetch(ctx context.Context) error {
	return s.tc.Do(ctx, http.MethodGet, "/v1/passes/{passType}/{serial}", nil, s.auth())
}

func (s *passSteps) fetchIfModifiedSince(ctx context.Context, since string) error {
	headers := s.auth()
	headers["If-Modified-Since"] = since
	return s.tc.Do(ctx, http.MethodGet, "/v1/passes/{passType}/{serial}", nil, headers)
}

func (s *passSteps) scan(ctx context.Context) error {
	return s.tc.Do(ctx, http.MethodGet, "/scan/{passHash}", nil, nil)
}

func (s *passSteps) bodyIsSerial(context.Context) error {
	if got, want := string(s.tc.Body()), s.tc.Get("serial"); got != want {
		return fmt.Errorf("body %q, want serial %q", got, want)
	}
	return nil
}

type passDocument struct {
	PassTypeIdentifier  string `json:"passTypeIdentifier"`
	SerialNumber        string `json:"serialNumber"`
	AuthenticationToken string `json:"authenticationToken"`
}

func readPassJSON(archive []byte) (passDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return passDocument{}, fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "pass.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return passDocument{}, err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return passDocument{}, err
		}
		var doc passDocument
		if err := json.Unmarshal(b, &doc); err != nil {
			return passDocument{}, fmt.Errorf("decode pass.json: %w", err)
		}
		return doc, nil
	}
	return passDocument{}, fmt.Errorf("pass.json missing from archive")
}
