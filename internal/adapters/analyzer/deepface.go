// Package analyzer talks to a DeepFace-compatible REST service for emotion
// analysis and face embeddings, and matches embeddings against a local gallery.
package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/behavior/internal/domain/model"
)

const maxResponseBytes = 16 << 20

// Client calls POST /analyze and POST /represent on a DeepFace API server.
type Client struct {
	baseURL  string
	http     *http.Client
	detector string
	model    string
}

// New creates a client for baseURL with configuration options.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     newHTTPClient(defaultTimeout),
		detector: defaultDetector,
		model:    defaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Representation is one face embedding with its region.
type Representation struct {
	Region    model.Region
	Embedding []float64
}

type analyzeRequest struct {
	Img              string   `json:"img"`
	Actions          []string `json:"actions"`
	DetectorBackend  string   `json:"detector_backend"`
	EnforceDetection bool     `json:"enforce_detection"`
}

type representRequest struct {
	Img              string `json:"img"`
	ModelName        string `json:"model_name"`
	DetectorBackend  string `json:"detector_backend"`
	EnforceDetection bool   `json:"enforce_detection"`
}

// Analyze returns the faces DeepFace found with their emotion scores.
// An empty result is reported as model.ErrNoFace.
func (c *Client) Analyze(ctx context.Context, frame model.Frame) ([]model.DetectedFace, error) {
	img, err := EncodeDataURI(frame.Image)
	if err != nil {
		return nil, err
	}
	body, err := c.post(ctx, "/analyze", analyzeRequest{
		Img:             img,
		Actions:         []string{"emotion"},
		DetectorBackend: c.detector,
	})
	if err != nil {
		return nil, err
	}
	return ParseAnalyze(body)
}

// Represent returns an embedding per face found in img.
func (c *Client) Represent(ctx context.Context, img image.Image) ([]Representation, error) {
	data, err := EncodeDataURI(img)
	if err != nil {
		return nil, err
	}
	body, err := c.post(ctx, "/represent", representRequest{
		Img:             data,
		ModelName:       c.model,
		DetectorBackend: c.detector,
	})
	if err != nil {
		return nil, err
	}
	return ParseRepresent(body)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrRequest, path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRequest, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrResponse, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrRequest, path, resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s returned invalid JSON", ErrResponse, path)
	}
	return body, nil
}

// results returns the result array of a DeepFace response. Older servers
// answer with a bare array or a single object.
func results(body []byte) []gjson.Result {
	root := gjson.ParseBytes(body)
	if r := root.Get("results"); r.Exists() {
		root = r
	}
	if root.IsArray() {
		return root.Array()
	}
	if root.IsObject() {
		return []gjson.Result{root}
	}
	return nil
}

func parseRegion(r gjson.Result) model.Region {
	area := r.Get("region")
	if !area.Exists() {
		area = r.Get("facial_area")
	}
	return model.Region{
		X: int(area.Get("x").Int()),
		Y: int(area.Get("y").Int()),
		W: int(area.Get("w").Int()),
		H: int(area.Get("h").Int()),
	}
}

// ParseAnalyze decodes an /analyze response body. Unknown emotion labels are dropped.
func ParseAnalyze(body []byte) ([]model.DetectedFace, error) {
	var faces []model.DetectedFace
	for _, r := range results(body) {
		emo := r.Get("emotion")
		if !emo.IsObject() {
			return nil, fmt.Errorf("%w: result without emotion", ErrResponse)
		}
		scores := make(model.EmotionScores, len(model.Labels))
		emo.ForEach(func(k, v gjson.Result) bool {
			if label, ok := model.ParseEmotion(k.String()); ok {
				scores[label] = v.Float()
			}
			return true
		})
		faces = append(faces, model.DetectedFace{Region: parseRegion(r), Emotions: scores})
	}
	if len(faces) == 0 {
		return nil, model.ErrNoFace
	}
	return faces, nil
}

// ParseRepresent decodes a /represent response body.
func ParseRepresent(body []byte) ([]Representation, error) {
	var reps []Representation
	for _, r := range results(body) {
		emb := r.Get("embedding")
		if !emb.IsArray() {
			return nil, fmt.Errorf("%w: result without embedding", ErrResponse)
		}
		vals := emb.Array()
		vec := make([]float64, len(vals))
		for i, v := range vals {
			vec[i] = v.Float()
		}
		reps = append(reps, Representation{Region: parseRegion(r), Embedding: vec})
	}
	if len(reps) == 0 {
		return nil, model.ErrNoFace
	}
	return reps, nil
}

// EncodeDataURI encodes img as a base64 JPEG data URI, the form DeepFace accepts in "img".
func EncodeDataURI(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: nil image", ErrRequest)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: defaultJPEGQuality}); err != nil {
		return "", fmt.Errorf("%w: encode jpeg: %w", ErrRequest, err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
