// Package star synthesizes scored Situation/Task/Action/Result narratives
// from activity clusters. The Synthesizer assigns every member activity to at
// least one section (raw-data hints win, then source and keyword heuristics),
// composes section text from the ordered titles, scores confidence per
// section, and runs the validation gates. The wizard is the alternate
// authoring path that starts from a journal entry instead of a cluster.
package star
