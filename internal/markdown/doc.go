// Package markdown renders tab bodies with goldmark and imports the animal
// catalog from a directory of markdown documents carrying YAML front matter.
// Imported records get deterministic ids so re-running an import reconciles
// the stored trees instead of duplicating them.
package markdown
