package attach_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"shotbridge/internal/attach"
	"shotbridge/internal/testsupport"
)

func TestFindThumbnailPatterns(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		want  string
	}{
		{name: "direct", files: []string{"vfx_010.jpg", "SEQ_010/vfx_010.jpg"}, want: "vfx_010.jpg"},
		{name: "frame numbered", files: []string{"vfx_010.00000001.jpg"}, want: "vfx_010.00000001.jpg"},
		{name: "sequence folder", files: []string{"SEQ_010/vfx_010.0001.jpg"}, want: "SEQ_010/vfx_010.0001.jpg"},
		{name: "prefix", files: []string{"vfx_010_v002.jpg"}, want: "vfx_010_v002.jpg"},
		{name: "recursive", files: []string{"a/b/c/vfx_010_poster.jpg"}, want: "a/b/c/vfx_010_poster.jpg"},
		{name: "ignores other shots", files: []string{"vfx_020.jpg", "vfx_010.png"}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tc.files {
				testsupport.WriteJPEG(t, filepath.Join(dir, f))
			}
			got, ok := attach.FindThumbnail(dir, "vfx_010")
			if tc.want == "" {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, filepath.Join(dir, tc.want), got)
		})
	}
}

func TestFindVideoPatterns(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		want  string
	}{
		{name: "sequence folder wins", files: []string{"vfx_010.mov", "SEQ_010/vfx_010.mov"}, want: "SEQ_010/vfx_010.mov"},
		{name: "direct mp4", files: []string{"vfx_010.mp4"}, want: "vfx_010.mp4"},
		{name: "frame suffix", files: []string{"SEQ_010/vfx_010.1001.mov"}, want: "SEQ_010/vfx_010.1001.mov"},
		{name: "wildcard", files: []string{"vfx_010_comp_v003.mov"}, want: "vfx_010_comp_v003.mov"},
		{name: "recursive contains", files: []string{"deep/er/show_vfx_010.mp4"}, want: "deep/er/show_vfx_010.mp4"},
		{name: "none", files: []string{"vfx_020.mov"}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tc.files {
				testsupport.WriteMOV(t, filepath.Join(dir, f))
			}
			got, ok := attach.FindVideo(dir, "vfx_010")
			if tc.want == "" {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, filepath.Join(dir, tc.want), got)
		})
	}
}

func TestFindMediaHandlesMissingDir(t *testing.T) {
	_, ok := attach.FindThumbnail(filepath.Join(t.TempDir(), "missing"), "vfx_010")
	assert.False(t, ok)
	_, ok = attach.FindVideo("", "vfx_010")
	assert.False(t, ok)
}
