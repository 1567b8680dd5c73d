// Package domain defines collaboration room entities and their value rules.
//
// Types here carry no persistence or transport concerns; validation helpers
// return platform errors with codes suitable for direct display.
package domain
