package sanitize

import (
	"strings"
	"testing"

	"pressroom/internal/models"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		contains   []string
		notContain []string
	}{
		{
			name:       "script removed with content",
			input:      "<p>Hello <script>alert(1)</script>world</p>",
			contains:   []string{"<p>", "Hello", "world"},
			notContain: []string{"script", "alert"},
		},
		{
			name:       "event handler stripped",
			input:      `<img src="/a.png" onerror="alert(1)">`,
			notContain: []string{"onerror", "alert"},
		},
		{
			name:       "javascript href stripped",
			input:      `<a href="javascript:alert(1)">click</a>`,
			contains:   []string{"click"},
			notContain: []string{"javascript"},
		},
		{
			name:       "inline style dropped",
			input:      `<p style="color:red">x</p>`,
			contains:   []string{"<p>x</p>"},
			notContain: []string{"style"},
		},
		{
			name:     "formatting kept",
			input:    "<h2>Title</h2><ul><li><strong>bold</strong></li></ul>",
			contains: []string{"<h2>Title</h2>", "<strong>bold</strong>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTML(tt.input)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("HTML(%q) = %q, missing %q", tt.input, got, want)
				}
			}
			for _, bad := range tt.notContain {
				if strings.Contains(got, bad) {
					t.Errorf("HTML(%q) = %q, must not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Hello World", want: "Hello World"},
		{name: "entities decoded", input: "Rock &amp; Roll", want: "Rock & Roll"},
		{name: "ampersand kept", input: "Rock & Roll", want: "Rock & Roll"},
		{name: "apostrophe kept", input: "Tom's Page", want: "Tom's Page"},
		{name: "tags removed", input: "<b>Bold</b> title", want: "Bold title"},
		{name: "script dropped", input: "Hi<script>alert(1)</script>", want: "Hi"},
		{name: "whitespace collapsed", input: "  a \n\t b  ", want: "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCSS(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		keep       string
		notContain string
	}{
		{name: "plain rules kept", input: "h1 { color: red; }", keep: "color: red"},
		{name: "expression removed", input: "div { width: expression(alert(1)); }", notContain: "expression"},
		{name: "javascript url removed", input: "a { background: url('javascript:alert(1)'); }", notContain: "javascript"},
		{name: "import removed", input: "@import url(http://evil.example/x.css); p { margin: 0; }", keep: "margin: 0", notContain: "@import"},
		{name: "style breakout removed", input: "p{}</style><script>alert(1)</script>", notContain: "</style>"},
		{name: "behavior removed", input: "p { behavior: url(x.htc); }", notContain: "behavior"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CSS(tt.input)
			if tt.keep != "" && !strings.Contains(got, tt.keep) {
				t.Errorf("CSS(%q) = %q, missing %q", tt.input, got, tt.keep)
			}
			if tt.notContain != "" && strings.Contains(strings.ToLower(got), tt.notContain) {
				t.Errorf("CSS(%q) = %q, must not contain %q", tt.input, got, tt.notContain)
			}
		})
	}
}

func TestBody(t *testing.T) {
	t.Run("markdown stored as authored", func(t *testing.T) {
		stored, rendered, err := Body(models.BodyFormatMarkdown, "# Hi\n\nsome *text*\n")
		if err != nil {
			t.Fatalf("Body: %v", err)
		}
		if stored != "# Hi\n\nsome *text*" {
			t.Errorf("stored = %q", stored)
		}
		if !strings.Contains(rendered, "<em>text</em>") {
			t.Errorf("rendered = %q, want emphasis", rendered)
		}
	})

	t.Run("markdown raw html cleaned before storage", func(t *testing.T) {
		stored, rendered, err := Body(models.BodyFormatMarkdown, "hello <script>alert(1)</script> <img src=x onerror=alert(2)>")
		if err != nil {
			t.Fatalf("Body: %v", err)
		}
		for _, bad := range []string{"<script", "onerror"} {
			if strings.Contains(stored, bad) {
				t.Errorf("stored = %q, %s kept", stored, bad)
			}
			if strings.Contains(rendered, bad) {
				t.Errorf("rendered = %q, %s leaked", rendered, bad)
			}
		}
		if !strings.HasPrefix(stored, "hello") {
			t.Errorf("stored = %q, text lost", stored)
		}
	})

	t.Run("markdown syntax around html kept", func(t *testing.T) {
		stored, _, err := Body(models.BodyFormatMarkdown, "> quote <em onclick=\"x()\">hi</em>\n\n`<script>` in code")
		if err != nil {
			t.Fatalf("Body: %v", err)
		}
		if want := "> quote <em>hi</em>\n\n`<script>` in code"; stored != want {
			t.Errorf("stored = %q, want %q", stored, want)
		}
	})

	t.Run("html sanitized", func(t *testing.T) {
		stored, rendered, err := Body(models.BodyFormatHTML, `<p onclick="x()">ok</p>`)
		if err != nil {
			t.Fatalf("Body: %v", err)
		}
		if stored != rendered || strings.Contains(stored, "onclick") {
			t.Errorf("stored = %q rendered = %q", stored, rendered)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, _, err := Body("rtf", "x"); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestPlainTextAndMetrics(t *testing.T) {
	text := PlainText("<h1>Title</h1><p>one two</p><p>three</p>")
	if text != "Title one two three" {
		t.Errorf("PlainText = %q", text)
	}
	if got := WordCount(text); got != 4 {
		t.Errorf("WordCount = %d, want 4", got)
	}
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words, wpm, want int
	}{
		{0, 200, 0},
		{1, 200, 1},
		{200, 200, 1},
		{201, 200, 2},
		{450, 200, 3},
		{100, 0, 1},
	}
	for _, tt := range tests {
		if got := ReadingTime(tt.words, tt.wpm); got != tt.want {
			t.Errorf("ReadingTime(%d, %d) = %d, want %d", tt.words, tt.wpm, got, tt.want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "short text untouched", text: "one two", limit: 20, want: "one two"},
		{name: "cut on word boundary", text: "one two three four", limit: 9, want: "one two..."},
		{name: "trailing punctuation trimmed", text: "alpha, beta gamma", limit: 8, want: "alpha..."},
		{name: "zero limit keeps all", text: "one two", limit: 0, want: "one two"},
		{name: "multibyte safe", text: "héllo wörld again", limit: 11, want: "héllo wörld..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.text, tt.limit); got != tt.want {
				t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}
