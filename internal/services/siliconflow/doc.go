// Package siliconflow wraps the SiliconFlow vision chat-completions API used
// to extract structured fields (date, item name, amount) from invoice files.
package siliconflow
