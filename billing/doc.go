// Package billing puts a single payment provider behind credit purchases.
// The provider is selected by configuration; purchase flows never branch on
// the vendor.
package billing
