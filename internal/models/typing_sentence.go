package models

// TypingSentence is a passage document as stored in the sentences collection.
type TypingSentence struct {
	Story           string `bson:"story" yaml:"story"`
	TotalCharacters int    `bson:"totalCharacters" yaml:"-"`
	TotalWords      int    `bson:"totalWords" yaml:"-"`
	Hash            string `bson:"hash" yaml:"-"`
}
