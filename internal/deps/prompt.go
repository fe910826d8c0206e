// Package deps drives the Java dependency analysis playbook: it builds the
// session prompt and renders the JSON document the session returns.
package deps

import (
	"fmt"
	"strings"
)

// Macro is the playbook invoked by every analysis prompt.
const Macro = "!get_java_deps"

// Title is the session title used for an analysis of repo.
func Title(repo string) string {
	return "Java Deps: " + repo
}

// BuildPrompt returns the session prompt for repo. With a non-empty
// targetVersion the prompt asks for a dual analysis of the current and the
// target framework version.
func BuildPrompt(repo, targetVersion string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nRepository: %s\n", Macro, repo)
	if targetVersion != "" {
		fmt.Fprintf(&b, "Target Version: %s\nDual Mode: True\n\n", targetVersion)
		b.WriteString("Please analyze the dependencies for this repository and provide the results as JSON.\n\n")
	} else {
		b.WriteString("Dual Mode: False\n\n")
		b.WriteString("Please analyze the dependencies for the CURRENT version only of this repository and provide the results as JSON.\n\n")
	}

	b.WriteString("You can provide the results either by:\n")
	b.WriteString("1. Populating the structured_output API field, OR\n")
	b.WriteString("2. Creating a JSON file attachment (e.g., output.json)\n\n")
	b.WriteString("Both methods work fine - use whichever is more convenient.\n\n")

	if targetVersion != "" {
		fmt.Fprintf(&b, "For target version analysis, just temporarily modify gradle.properties to change "+
			"orchestraFrameworkVersion to %s, run the dependency analysis, then revert the change. "+
			"Don't use complex init scripts.\n\n", targetVersion)
	} else {
		b.WriteString("Do NOT analyze any target version - only analyze the current version as declared in the repository.\n\n")
	}

	b.WriteString("If any Gradle commands hang for more than 2 minutes without output, " +
		"kill them and try a simpler approach or report what you found so far.\n\n")
	b.WriteString("When complete, either change your status to finished or blocked (both are fine).\n")
	return b.String()
}
