package storage

import "testing"

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"https://abc.r2.cloudflarestorage.com":      "abc.r2.cloudflarestorage.com",
		"http://localhost:9000/":                    "localhost:9000",
		"localhost:9000":                            "localhost:9000",
		"https://s3.us-west-2.amazonaws.com/bucket": "s3.us-west-2.amazonaws.com",
		"":                                          "",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestS3StorageGetURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "public url wins",
			cfg:  Config{Type: StorageTypeR2, Endpoint: "https://abc.r2.cloudflarestorage.com", Bucket: "recipes", PublicURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/uploads/a.jpg",
		},
		{
			name: "path style on endpoint",
			cfg:  Config{Type: StorageTypeS3Compatible, Endpoint: "localhost:9000", Bucket: "recipes"},
			want: "http://localhost:9000/recipes/uploads/a.jpg",
		},
		{
			name: "aws virtual host",
			cfg:  Config{Type: StorageTypeS3, Bucket: "recipes", Region: "eu-west-1"},
			want: "https://recipes.s3.eu-west-1.amazonaws.com/uploads/a.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewS3Storage(&tt.cfg)
			if err != nil {
				t.Fatalf("NewS3Storage() error = %v", err)
			}
			if got := s.GetURL("/uploads/a.jpg"); got != tt.want {
				t.Errorf("GetURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := map[string]StorageType{
		"":                                     StorageTypeLocal,
		"https://abc.r2.cloudflarestorage.com": StorageTypeR2,
		"s3.amazonaws.com":                     StorageTypeS3,
		"localhost:9000":                       StorageTypeS3Compatible,
	}
	for endpoint, want := range tests {
		if got := detectStorageType(endpoint); got != want {
			t.Errorf("detectStorageType(%q) = %q, want %q", endpoint, got, want)
		}
	}
}
