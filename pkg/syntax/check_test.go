package syntax

import (
	"strings"
	"testing"
)

func TestCheckAcceptsModuleBodies(t *testing.T) {
	inputs := []string{
		"module.exports = require('./b');\n",
		"#!/usr/bin/env node\nexports.run = () => 1;\n",
		"if (x) /'/.test(s);\n",
		"return;\n",
		"const { a, ...rest } = require('./c');\nclass K { m() { return `${a}` } }\n",
		"",
	}
	for _, src := range inputs {
		if err := Check(src); err != nil {
			t.Errorf("Check(%q) = %v", src, err)
		}
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"module.exports = ;", "1:18: "},
		{"var = = 1;", "1:"},
		{"x = 1;\ny = ;\n", "2:5: "},
		{"import a from './a';\n", "1:"},
	}
	for _, tt := range tests {
		err := Check(tt.src)
		if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
			t.Errorf("Check(%q) = %v, want error starting with %q", tt.src, err, tt.want)
		}
	}
}
