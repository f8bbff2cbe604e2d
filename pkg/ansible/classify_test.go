package ansible

import (
	"testing"
)

func TestClassifyRoles(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		project string
		want    []Candidate
	}{
		{
			name: "MultiRole",
			files: []string{
				"README.md",
				"roles/nginx/tasks/main.yml",
				"roles/nginx/meta/main.yml",
				"roles/postgres/tasks/main.yml",
			},
			project: "infra-stack",
			want: []Candidate{
				{Kind: KindRole, Name: "nginx", Path: "roles/nginx/tasks/main.yml"},
				{Kind: KindRole, Name: "postgres", Path: "roles/postgres/tasks/main.yml"},
			},
		},
		{
			name:    "SingleRoleProject",
			files:   []string{"tasks/main.yml", "meta/main.yml", "defaults/main.yml"},
			project: "nginx",
			want: []Candidate{
				{Kind: KindRole, Name: "nginx", Path: "tasks/main.yml"},
			},
		},
		{
			name:    "NoAnsibleContent",
			files:   []string{"main.go", "go.mod", "docs/readme.md"},
			project: "service",
			want:    nil,
		},
		{
			name:    "NestedYAMLNotPlaybook",
			files:   []string{"group_vars/all.yml", "inventories/prod/hosts.yml"},
			project: "inventory",
			want:    nil,
		},
		{
			name:    "RequirementsNotPlaybookCandidate",
			files:   []string{"requirements.yml"},
			project: "plays",
			want:    nil,
		},
		{
			name:    "MalformedRolePathIgnored",
			files:   []string{"roles/tasks/main.yml", "roles//tasks/main.yml"},
			project: "weird",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(NewLayout(tt.files), tt.project)
			if len(got) != len(tt.want) {
				t.Fatalf("candidates = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("candidate[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClassifyPlaybookCandidates(t *testing.T) {
	files := []string{"site.yml", "deploy.yaml", "vars.yml", "sub/dir.yml", "README.md"}
	got := Classify(NewLayout(files), "plays")

	want := []string{"deploy.yaml", "site.yml", "vars.yml"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %+v, want names %v", got, want)
	}
	for i, c := range got {
		if c.Kind != KindPlaybook || c.Name != want[i] {
			t.Errorf("candidate[%d] = %+v, want playbook %q", i, c, want[i])
		}
	}
}

func TestIsPlaybook(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
		wantErr bool
	}{
		{
			name: "HostsKey",
			content: `---
- hosts: webservers
  roles:
    - nginx
`,
			want: true,
		},
		{
			name: "HostsList",
			content: `---
- hosts: [web, db]
  roles:
    - common
`,
			want: true,
		},
		{
			name: "ImportPlaybook",
			content: `---
- import_playbook: common.yml
`,
			want: true,
		},
		{
			name: "RolesOnly",
			content: `---
- roles:
    - common
`,
			want: true,
		},
		{
			name: "VarsFile",
			content: `---
ntp_server: pool.ntp.org
timezone: UTC
`,
			want: false,
		},
		{
			name:    "MalformedYAML",
			content: "hosts: [unclosed\n  - broken",
			want:    false,
			wantErr: true,
		},
		{
			name:    "ScalarDocument",
			content: "../shared/site.yml",
			want:    false,
			wantErr: true,
		},
		{
			name:    "Empty",
			content: "",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsPlaybook([]byte(tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("IsPlaybook = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlaybookDependencies(t *testing.T) {
	content := `---
- hosts: web
  roles:
    - nginx
    - role: certbot
      tags: [tls]
- hosts: db
  roles:
    - postgres
    - nginx
`
	deps, err := PlaybookDependencies([]byte(content))
	if err != nil {
		t.Fatalf("PlaybookDependencies: %v", err)
	}

	want := []string{"nginx", "certbot", "postgres"}
	if len(deps) != len(want) {
		t.Fatalf("deps = %+v, want %v", deps, want)
	}
	for i, d := range deps {
		if d.Name != want[i] {
			t.Errorf("dep[%d] = %q, want %q", i, d.Name, want[i])
		}
	}
}
