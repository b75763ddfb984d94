package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/netx"
)

// Blob is binary content together with its media type.
type Blob struct {
	Data        []byte
	ContentType string
}

// Artifact is the response of the download endpoint. Blob is set when the
// server labelled the content with a usable media type; otherwise the bytes
// arrive in Body and ContentType holds whatever header value was sent.
type Artifact struct {
	Blob        *Blob
	Body        []byte
	ContentType string
	FileName    string
}

// Download fetches the artifact with the given id. It is used by both the
// doctor and the patient path.
func (c *HTTPClient) Download(ctx context.Context, id models.ID) (*Artifact, error) {
	const op = "download"

	resp, err := c.send(ctx, op, http.MethodGet, "/patient/download", url.Values{"id": {id.String()}}, nil, "")
	if err != nil {
		return nil, err
	}
	defer netx.DrainAndClose(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArtifactSize+1))
	if err != nil {
		return nil, transportError(op, err)
	}
	if len(data) > MaxArtifactSize {
		return nil, fmt.Errorf("%s: artifact exceeds %d bytes", op, MaxArtifactSize)
	}

	a := &Artifact{FileName: netx.FilenameFromDisposition(resp.Header.Get("Content-Disposition"))}
	ct := resp.Header.Get("Content-Type")
	if netx.ContentTypeOr(ct, "") != "" {
		a.Blob = &Blob{Data: data, ContentType: ct}
	} else {
		a.Body = data
		a.ContentType = ct
	}
	return a, nil
}

func (c *HTTPClient) RequestOtp(ctx context.Context, email string) error {
	return c.doJSON(ctx, "request otp", http.MethodPost, "/patient/request-otp",
		url.Values{"email": {email}}, nil, nil)
}

// VerifyOtp exchanges (email, otp) for the patient's prescription list. An
// empty list is a valid answer.
func (c *HTTPClient) VerifyOtp(ctx context.Context, email, otp string) ([]models.PrescriptionSummary, error) {
	var resp []models.PrescriptionSummary
	if err := c.doJSON(ctx, "verify otp", http.MethodPost, "/patient/verify-otp",
		url.Values{"email": {email}, "otp": {otp}}, nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []models.PrescriptionSummary{}
	}
	return resp, nil
}

func decodeOptional(r io.Reader, out any) error {
	err := json.NewDecoder(r).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
