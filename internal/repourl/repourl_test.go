package repourl

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases host and path",
			in:   "https://GitHub.com/Owner/Repo",
			want: "https://github.com/owner/repo",
		},
		{
			name: "strips trailing slash",
			in:   "https://github.com/owner/repo/",
			want: "https://github.com/owner/repo",
		},
		{
			name: "strips git suffix",
			in:   "https://github.com/owner/repo.git",
			want: "https://github.com/owner/repo",
		},
		{
			name: "drops query and fragment",
			in:   "https://github.com/owner/repo?tab=readme#top",
			want: "https://github.com/owner/repo",
		},
		{
			name: "drops userinfo",
			in:   "https://user@github.com/owner/repo",
			want: "https://github.com/owner/repo",
		},
		{
			name: "trims whitespace",
			in:   "  https://github.com/owner/repo  ",
			want: "https://github.com/owner/repo",
		},
		{
			name: "strips repeated trailing slashes",
			in:   "https://github.com/owner/repo//",
			want: "https://github.com/owner/repo",
		},
		{
			name: "strips git suffix behind a slash",
			in:   "https://github.com/owner/repo/.git",
			want: "https://github.com/owner/repo",
		},
		{
			name: "unparseable input",
			in:   "Not A URL/",
			want: "not a url",
		},
		{
			name: "unparseable input with repeated slashes",
			in:   "abc//",
			want: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://GitHub.com/Owner/Repo/",
		"https://github.com/owner/repo.git",
		"https://github.com/owner/repo?x=1#frag",
		"http://gitlab.example.com/Group/Project/",
		"not a url at all",
		"",
		"///",
		"abc//",
		"https://github.com/owner/repo//",
		"https://github.com/owner/repo/.git",
		"https://github.com/owner/repo.git.git",
		"https://github.com/owner/repo/tree/main/docs",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)

		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://github.com/owner/repo/tree/main/docs", "https://github.com/owner/repo"},
		{"https://github.com/owner/repo/pull/999", "https://github.com/owner/repo"},
		{"https://github.com/owner/repo", "https://github.com/owner/repo"},
		{"https://github.com/owner", "https://github.com/owner"},
	}

	for _, tt := range tests {
		if got := Simplify(tt.in); got != tt.want {
			t.Errorf("Simplify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractOwnerRepo(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "plain repo url",
			in:        "https://github.com/octocat/hello-world",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
		},
		{
			name:      "git suffix",
			in:        "https://github.com/octocat/hello-world.git",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
		},
		{
			name:    "owner only",
			in:      "https://github.com/octocat",
			wantErr: true,
		},
		{
			name:    "empty",
			in:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ExtractOwnerRepo(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractOwnerRepo(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}

			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ExtractOwnerRepo(%q) = %q/%q, want %q/%q", tt.in, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestIsRepoURL(t *testing.T) {
	if !IsRepoURL("https://github.com/owner/repo") {
		t.Error("IsRepoURL() = false for a repository page")
	}

	if IsRepoURL("https://github.com/explore") {
		t.Error("IsRepoURL() = true for a non-repository page")
	}
}
