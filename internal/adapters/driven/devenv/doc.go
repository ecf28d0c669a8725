// Package devenv loads development environment definitions: the compose file
// that describes the devcontainer and the YAML bootstrap plan run inside it.
//
// Both the short and long compose syntaxes are accepted for volumes, ports,
// networks and depends_on. Only the fields the devcontainer contract needs
// are decoded; everything else in the file is ignored.
package devenv
