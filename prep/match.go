package prep

import (
	"sort"
	"strings"
)

// MatchPrepFiles ties each path to the project whose name it contains. When
// several project names occur in a path the longest one wins, so
// "Project_1234" is preferred over "Project_12". Paths with no match, or with
// equally long matches, are errors.
func MatchPrepFiles(paths []string, projects []string) ([]PrepFile, error) {
	out := make([]PrepFile, 0, len(paths))
	for _, path := range paths {
		var best []string
		for _, name := range projects {
			if name == "" || !strings.Contains(path, name) {
				continue
			}
			switch {
			case len(best) == 0 || len(name) > len(best[0]):
				best = []string{name}
			case len(name) == len(best[0]) && name != best[0]:
				best = append(best, name)
			}
		}

		switch len(best) {
		case 0:
			return nil, &UnmappedProjectError{Path: path}
		case 1:
			out = append(out, PrepFile{Path: path, Project: best[0]})
		default:
			sort.Strings(best)
			return nil, &AmbiguousProjectError{Path: path, Candidates: best}
		}
	}
	return out, nil
}
