// Package ngram turns raw column values into overlapping character n-grams.
//
// Values are normalized before windowing so that spelling noise common in
// hand-entered records (case, punctuation, "&" versus "and", stray non-ASCII
// bytes, text that went through the wrong code page) collapses onto the same
// n-grams. The normalized string is padded with one space on each side so that
// word starts and ends carry their own grams.
//
// Everything here is pure: the same value always yields the same sequence,
// which lets the vectorizer tokenize corpus values independently and in
// parallel.
package ngram
