// Package story persists career stories and runs their publication
// lifecycle. The Repository enforces the draft/published/unpublished
// transition graph and the viewer visibility rules; the Manager generates
// stories from clusters through the star synthesizer, handles wizard drafts,
// and meters generation against the wallet when one is wired.
package story
