package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckRmCatastrophic(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantErr bool
	}{
		{"rf root", []string{"rm", "-rf", "/"}, true},
		{"r root", []string{"rm", "-r", "/"}, true},
		{"R root", []string{"rm", "-R", "/"}, true},
		{"long recursive root", []string{"rm", "--recursive", "/"}, true},
		{"rf dot", []string{"rm", "-rf", "."}, true},
		{"rf dotdot", []string{"rm", "-rf", ".."}, true},
		{"rf tilde", []string{"rm", "-rf", "~"}, true},
		{"rf tilde slash", []string{"rm", "-rf", "~/"}, true},
		{"rf root trailing slash", []string{"rm", "-rf", "//"}, true},
		{"absolute rm path", []string{"/bin/rm", "-rf", "/"}, true},
		{"r safe path", []string{"rm", "-rf", "/tmp/safe"}, false},
		{"no recursive flag", []string{"rm", "file.txt"}, false},
		{"f only root", []string{"rm", "-f", "/"}, false},
		{"recursive with safe path", []string{"rm", "-r", "build/"}, false},
		{"combined fr root", []string{"rm", "-fr", "/"}, true},
		{"multiple args mixed", []string{"rm", "-rf", "build/", "/"}, true},
		{"r flag separate", []string{"rm", "-r", "-f", "/"}, true},

		// Other programs are ignored.
		{"not rm", []string{"grep", "-rf", "/"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRmCatastrophic(tt.argv)
			if tt.wantErr {
				assert.Error(t, err, "argv %v", tt.argv)
			} else {
				assert.NoError(t, err, "argv %v", tt.argv)
			}
		})
	}
}
