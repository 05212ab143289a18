package convert

// normalizeToolName maps a provider's raw tool name onto the
// canonical file-operation names where one applies. Unrecognized
// names pass through unchanged; they are provider-native, not an
// error.
func normalizeToolName(raw string) string {
	switch raw {
	case "Read", "Edit", "Write", "Bash":
		return raw

	// Codex
	case "shell", "shell_command", "exec_command", "write_stdin":
		return "Bash"
	case "apply_patch":
		return "Edit"

	// Cline
	case "read_file":
		return "Read"
	case "write_to_file", "write_file":
		return "Write"
	case "replace_in_file", "edit_file":
		return "Edit"
	case "execute_command", "run_command":
		return "Bash"

	// OpenCode
	case "read":
		return "Read"
	case "write":
		return "Write"
	case "edit", "patch":
		return "Edit"
	case "bash":
		return "Bash"

	default:
		return raw
	}
}
