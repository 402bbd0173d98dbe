package naming

import "testing"

func TestSplitNames(t *testing.T) {
	if got := SplitPartName("Rock", 3); got != "Rock_3" {
		t.Errorf("SplitPartName() = %q, want Rock_3", got)
	}
	if got := SplitFolder("/Game/Props", "Rock"); got != "/Game/Props/Rock/Split" {
		t.Errorf("SplitFolder() = %q", got)
	}
	if got := RelocatedOriginal("/Game/Props", "Rock"); got != "/Game/Props/Rock/Rock" {
		t.Errorf("RelocatedOriginal() = %q", got)
	}
}

func TestMergedFolder(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/Game/Props/Rock/Split", "/Game/Props/Rock/Merged"},
		{"/Game/Props/Rock/Split/", "/Game/Props/Rock/Merged"},
		{"/Game/Props", "/Game/Merged"},
	}
	for _, tt := range tests {
		if got := MergedFolder(tt.in); got != tt.want {
			t.Errorf("MergedFolder(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !IsMergedFolder("/Game/Props/Rock/Merged") || IsMergedFolder("/Game/Props/Rock/Split") {
		t.Error("IsMergedFolder() misclassified a folder")
	}
}

func TestMergeBaseName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Rock_3", "Rock"},
		{"Big_Rock_12", "Big_Rock"},
		{"Rock", "Rock"},
		{"Rock_", "Rock"},
	}
	for _, tt := range tests {
		if got := MergeBaseName(tt.in); got != tt.want {
			t.Errorf("MergeBaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNextFreeName(t *testing.T) {
	taken := map[string]bool{
		"/Game/Merged/Rock_0": true,
		"/Game/Merged/Rock_1": true,
		"/Game/Merged/Rock_3": true,
	}
	exists := func(p string) bool { return taken[p] }
	if got := NextFreeName("/Game/Merged", "Rock", exists); got != "Rock_2" {
		t.Errorf("NextFreeName() = %q, want Rock_2", got)
	}
	if got := NextFreeName("/Game/Merged", "Tree", exists); got != "Tree_0" {
		t.Errorf("NextFreeName() = %q, want Tree_0", got)
	}
}

func TestActorFolders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"split under folder", SplitActorFolder("Level/Props", "Rock"), "Level/Props/Rock/Split"},
		{"split at root", SplitActorFolder("", "Rock"), "Rock/Split"},
		{"merge strips split", MergedActorFolder("Level/Props/Rock/Split"), "Level/Props/Rock"},
		{"merge strips once", MergedActorFolder("A/Split/Split"), "A/Split"},
		{"merge keeps other", MergedActorFolder("Level/Props"), "Level/Props"},
		{"merge root split", MergedActorFolder("Split"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	folder, name := Split("/Game/Props/Rock")
	if folder != "/Game/Props" || name != "Rock" {
		t.Errorf("Split() = %q, %q, want /Game/Props, Rock", folder, name)
	}
}
