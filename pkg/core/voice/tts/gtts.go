package tts

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

const (
	gttsDefaultBaseURL = "https://translate.google.com/translate_tts"

	// gttsMaxChunkRunes is the longest text the translate endpoint accepts in
	// one request. Longer replies are split on whitespace and the returned
	// MP3 segments concatenated.
	gttsMaxChunkRunes = 200
)

// GTTSProvider synthesizes speech through the free Google Translate TTS
// endpoint. It needs no credential, which makes it the fallback voice when
// no ElevenLabs key is configured. Unlike the reply stage it fails loudly:
// an unreachable endpoint is an error, not a degraded result.
type GTTSProvider struct {
	httpClient *http.Client
	baseURL    string
}

func NewGTTS() *GTTSProvider {
	return &GTTSProvider{
		httpClient: &http.Client{},
		baseURL:    gttsDefaultBaseURL,
	}
}

// WithHTTPClient overrides the HTTP client.
func (g *GTTSProvider) WithHTTPClient(client *http.Client) *GTTSProvider {
	if client != nil {
		g.httpClient = client
	}
	return g
}

// WithBaseURL overrides the translate endpoint.
func (g *GTTSProvider) WithBaseURL(base string) *GTTSProvider {
	if base = strings.TrimSpace(base); base != "" {
		g.baseURL = strings.TrimRight(base, "/")
	}
	return g
}

func (g *GTTSProvider) Name() string {
	return "gtts"
}

func (g *GTTSProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewInvalidRequestError("no text to speak")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return nil, core.NewInvalidRequestError("synthesis output path is required")
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	speed := "1"
	if opts.Slow {
		speed = "0.3"
	}

	chunks := splitSpeechChunks(text, gttsMaxChunkRunes)
	out, err := createOutputFile(opts.OutputPath)
	if err != nil {
		return nil, err
	}
	var written int64
	for idx, chunk := range chunks {
		n, err := g.fetchChunk(ctx, out, chunk, lang, speed, idx, len(chunks))
		if err != nil {
			discardPartial(out, opts.OutputPath)
			return nil, err
		}
		written += n
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(opts.OutputPath)
		return nil, core.NewLocalResourceError("close audio output file", err)
	}
	return &Synthesis{Path: opts.OutputPath, Format: "mp3", Bytes: written}, nil
}

func (g *GTTSProvider) fetchChunk(ctx context.Context, w io.Writer, chunk, lang, speed string, idx, total int) (int64, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("q", chunk)
	q.Set("tl", lang)
	q.Set("ttsspeed", speed)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, core.NewProviderError(g.Name(), err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, core.NewProviderError(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return 0, core.NewRateLimitError(g.Name(), msg, 0)
		}
		return 0, core.NewAPIError(g.Name(), msg, resp.StatusCode)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, core.NewLocalResourceError("write audio segment", err)
	}
	return n, nil
}

// splitSpeechChunks breaks text into chunks of at most max runes, preferring
// whitespace boundaries. A single word longer than max is split mid-word.
func splitSpeechChunks(text string, max int) []string {
	var chunks []string
	var b strings.Builder
	count := 0
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
			count = 0
		}
	}
	for _, word := range strings.Fields(text) {
		wlen := utf8.RuneCountInString(word)
		for wlen > max {
			flush()
			runes := []rune(word)
			chunks = append(chunks, string(runes[:max]))
			word = string(runes[max:])
			wlen = utf8.RuneCountInString(word)
		}
		sep := 0
		if count > 0 {
			sep = 1
		}
		if count+sep+wlen > max {
			flush()
			sep = 0
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		count += sep + wlen
	}
	flush()
	return chunks
}
