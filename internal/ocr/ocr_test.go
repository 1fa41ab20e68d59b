package ocr

import "testing"

func TestResultHint(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"latin words keep one space", "What  is\n 2 + 2 ?", "What is 2 + 2 ?"},
		{"cjk glyph spacing removed", "下 列 哪 个\n是 质 数", "下列哪个是质数"},
		{"mixed boundary keeps space", "单位 kg 是 什么", "单位 kg 是什么"},
		{"fullwidth punctuation joins", "答 案 ：", "答案："},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Text: tt.text}
			if got := r.Hint(); got != tt.want {
				t.Errorf("Hint() = %q, want %q", got, tt.want)
			}
		})
	}

	var nilResult *Result
	if nilResult.Hint() != "" {
		t.Error("nil Result should have empty hint")
	}
}

func TestOptionsLanguages(t *testing.T) {
	if got := (Options{}).languages(); len(got) != 2 || got[0] != "chi_sim" {
		t.Errorf("default languages = %v", got)
	}
	if got := (Options{Languages: []string{"eng"}}).languages(); len(got) != 1 || got[0] != "eng" {
		t.Errorf("explicit languages = %v", got)
	}
}
