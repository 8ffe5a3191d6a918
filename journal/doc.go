// Package journal persists free-form work notes. Entries are the raw
// material for the story wizard: the command layer analyzes each saved
// entry for narrative structure so a draft story is one step away.
package journal
