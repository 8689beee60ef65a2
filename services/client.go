// Package services talks to the model sidecar: the HTTP service that hosts
// the parser, the attention encoder, the lemmatizer, the synset lookup, the
// sentence embedder and the NER model.
//
// Every endpoint takes and returns JSON over POST. Calls share one rate
// limiter and are never retried; a failure is reported to the caller, which
// skips the unit of work.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/ontomap/am"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/match"
	"github.com/teranos/ontomap/resolve"
)

// Endpoint paths
const (
	PathParse     = "/v1/parse"
	PathEncode    = "/v1/encode"
	PathLemma     = "/v1/lemma"
	PathSynonyms  = "/v1/synonyms"
	PathEmbed     = "/v1/embed"
	PathNER       = "/v1/ner"
	PathTranslate = "/v1/translate"
)

// CallObserver is told about every completed call
type CallObserver interface {
	ObserveCall(endpoint string, elapsed time.Duration, err error)
}

// Client implements the match, semantic and resolve collaborator interfaces
// against the sidecar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter // nil = unlimited
	observer   CallObserver
	logger     *zap.SugaredLogger
}

// NewClient creates a client from the services config section
func NewClient(cfg am.ServicesConfig, log *zap.SugaredLogger) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: log.Named("services"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// WithObserver sets the call observer and returns c
func (c *Client) WithObserver(o CallObserver) *Client {
	c.observer = o
	return c
}

type parseRequest struct {
	Sentence string `json:"sentence"`
	Lang     string `json:"lang"`
}

type encodeRequest struct {
	Words []string `json:"words"`
}

type lemmaRequest struct {
	Token string `json:"token"`
	Lang  string `json:"lang"`
}

type lemmaResponse struct {
	Lemma string `json:"lemma"`
}

type synonymsRequest struct {
	Word string `json:"word"`
	Lang string `json:"lang"`
}

type synonymsResponse struct {
	Synonyms []string `json:"synonyms"`
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type nerRequest struct {
	Sentence string `json:"sentence"`
}

type nerResponse struct {
	Entities []resolve.Entity `json:"entities"`
}

type translateRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

type translateResponse struct {
	Text string `json:"text"`
}

// Parse tokenizes a sentence and returns its noun chunks
func (c *Client) Parse(ctx context.Context, sentence, lang string) (match.Doc, error) {
	var doc match.Doc
	err := c.post(ctx, PathParse, parseRequest{Sentence: sentence, Lang: lang}, &doc)
	return doc, err
}

// Encode returns the attention tensor and sub-token word map for words
func (c *Client) Encode(ctx context.Context, words []string) (match.Encoding, error) {
	var enc match.Encoding
	if err := c.post(ctx, PathEncode, encodeRequest{Words: words}, &enc); err != nil {
		return match.Encoding{}, err
	}
	if len(enc.Attentions) == 0 {
		return match.Encoding{}, errors.NewInvalidInputError("encoder returned no attention layers")
	}
	return enc, nil
}

// Lemma returns the lemma of token
func (c *Client) Lemma(ctx context.Context, token, lang string) (string, error) {
	var resp lemmaResponse
	if err := c.post(ctx, PathLemma, lemmaRequest{Token: token, Lang: lang}, &resp); err != nil {
		return "", err
	}
	return resp.Lemma, nil
}

// Synonyms returns the synset lemmas of word
func (c *Client) Synonyms(ctx context.Context, word, lang string) ([]string, error) {
	var resp synonymsResponse
	if err := c.post(ctx, PathSynonyms, synonymsRequest{Word: word, Lang: lang}, &resp); err != nil {
		return nil, err
	}
	return resp.Synonyms, nil
}

// Embed returns the sentence embedding of text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, PathEmbed, embedRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.NewInvalidInputError("embedder returned an empty vector for %q", text)
	}
	return resp.Embedding, nil
}

// Predict runs named entity recognition over a sentence
func (c *Client) Predict(ctx context.Context, sentence string) ([]resolve.Entity, error) {
	var resp nerResponse
	if err := c.post(ctx, PathNER, nerRequest{Sentence: sentence}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// Translate renders text from one language into another
func (c *Client) Translate(ctx context.Context, text, from, to string) (string, error) {
	var resp translateResponse
	if err := c.post(ctx, PathTranslate, translateRequest{Text: text, From: from, To: to}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveCall(path, time.Since(start), err)
		}
		if err != nil {
			c.logger.Debugw("Service call failed",
				logger.FieldOperation, path,
				logger.FieldDurationMS, time.Since(start).Milliseconds(),
				logger.FieldError, err)
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(err, "rate limit wait for %s", path)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapUnavailable(err, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.WrapUnavailable(
			errors.Newf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}
