package deps

import (
	"sort"
	"strings"

	"github.com/user/devinctl/pkg/devin"
)

// MavenPath is the repository layout path of one artifact file:
// com/example/lib/1.2.0/lib-1.2.0.jar. An empty ext means jar.
func MavenPath(group, artifact, version, ext string) string {
	if ext == "" {
		ext = "jar"
	}
	return strings.ReplaceAll(group, ".", "/") + "/" + artifact + "/" + version + "/" + artifact + "-" + version + "." + ext
}

// CandidatePaths lists the repository paths of the upload candidates in
// doc for the selected versions, sorted and without duplicates. Candidates
// missing a group, artifact or version are skipped.
func CandidatePaths(doc devin.Document, v Version) []string {
	if v == "" {
		v = VersionBoth
	}
	var lists []devin.Document
	if results, ok := doc.Lookup("results"); ok {
		for _, part := range []Version{VersionCurrent, VersionTarget} {
			if !v.includes(part) {
				continue
			}
			if list, ok := results.Lookup(string(part), "upload_candidates"); ok {
				lists = append(lists, list)
			}
		}
	} else if list, ok := doc.Lookup("upload_candidates"); ok {
		lists = append(lists, list)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, list := range lists {
		for _, c := range list.Items() {
			field := func(k string) string {
				f, _ := c.Lookup(k)
				s, _ := f.Str()
				return strings.TrimSpace(s)
			}
			group, artifact, version := field("group"), field("artifact"), field("version")
			if group == "" || artifact == "" || version == "" {
				continue
			}
			p := MavenPath(group, artifact, version, field("type"))
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths
}
