package source

import "testing"

func TestClassify(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		input string
		want  Classification
	}{
		{"https://www.instagram.com/p/abc", Classification{KindSocial, PlatformInstagram}},
		{"http://instagr.am/p/abc", Classification{KindSocial, PlatformInstagram}},
		{"https://vm.tiktok.com/xyz/", Classification{KindSocial, PlatformTikTok}},
		{"https://www.tiktok.com/@chef/video/1", Classification{KindSocial, PlatformTikTok}},
		{"https://youtu.be/dQw4w9WgXcQ", Classification{KindSocial, PlatformYouTube}},
		{"https://m.youtube.com/watch?v=1", Classification{KindSocial, PlatformYouTube}},
		{"HTTPS://WWW.YOUTUBE.COM/watch?v=1", Classification{KindSocial, PlatformYouTube}},
		{"https://example.com/bolo", Classification{Kind: KindURL}},
		{"  https://tudogostoso.com.br/receita/1  ", Classification{Kind: KindURL}},
		{"https://notinstagram.com/p/abc", Classification{Kind: KindURL}},
		{"https://instagram.com.evil.net/p", Classification{Kind: KindURL}},
		{"instagram.com/p/abc", Classification{Kind: KindText}},
		{"ftp://example.com/file", Classification{Kind: KindText}},
		{"Bolo de Cenoura\nIngredientes:\n2 ovos", Classification{Kind: KindText}},
		{"", Classification{Kind: KindText}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := c.Classify(tt.input)
			if got != tt.want {
				t.Fatalf("Classify(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier()
	input := "https://www.tiktok.com/@chef/video/1"
	first := c.Classify(input)
	for i := 0; i < 100; i++ {
		if got := c.Classify(input); got != first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindURL, KindSocial, KindText, KindImage} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("video").Valid() {
		t.Errorf("video should not be valid")
	}
}
