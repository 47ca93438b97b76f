// Package wallet derives the extended keys that identify an immutag
// identity from a BIP-39 mnemonic.
//
// The master key is computed from the mnemonic's entropy rather than from
// the PBKDF2 seed, which keeps keys compatible with registries written by
// earlier immutag releases.
package wallet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidMnemonic is returned for mnemonics that do not decode under
// the selected word list.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Language selects a BIP-39 word list.
type Language int

const (
	English Language = iota
	ChineseSimplified
	ChineseTraditional
	French
	Italian
	Japanese
	Korean
	Spanish
)

var languageNames = []string{
	English:            "english",
	ChineseSimplified:  "chinese-simplified",
	ChineseTraditional: "chinese-traditional",
	French:             "french",
	Italian:            "italian",
	Japanese:           "japanese",
	Korean:             "korean",
	Spanish:            "spanish",
}

// Languages lists every supported language.
func Languages() []Language {
	return []Language{English, ChineseSimplified, ChineseTraditional, French, Italian, Japanese, Korean, Spanish}
}

func (l Language) String() string {
	if l < 0 || int(l) >= len(languageNames) {
		return fmt.Sprintf("Language(%d)", int(l))
	}
	return languageNames[l]
}

// ParseLanguage accepts names such as "english", "Chinese_Simplified" or
// "chinese-traditional".
func ParseLanguage(s string) (Language, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("_", "-", " ", "-").Replace(name)
	for i, n := range languageNames {
		if n == name {
			return Language(i), nil
		}
	}
	names := make([]string, 0, len(languageNames))
	for _, l := range Languages() {
		names = append(names, l.String())
	}
	return English, fmt.Errorf("unknown mnemonic language %q (want one of %s)", s, strings.Join(names, ", "))
}

func (l Language) wordList() ([]string, error) {
	switch l {
	case English:
		return wordlists.English, nil
	case ChineseSimplified:
		return wordlists.ChineseSimplified, nil
	case ChineseTraditional:
		return wordlists.ChineseTraditional, nil
	case French:
		return wordlists.French, nil
	case Italian:
		return wordlists.Italian, nil
	case Japanese:
		return wordlists.Japanese, nil
	case Korean:
		return wordlists.Korean, nil
	case Spanish:
		return wordlists.Spanish, nil
	default:
		return nil, fmt.Errorf("unsupported language %s", l)
	}
}

// ExtendedPrivateKey is a serialized BIP-32 private key ("xprv...").
type ExtendedPrivateKey string

func (k ExtendedPrivateKey) String() string { return string(k) }

// ExtendedPublicKey is a serialized BIP-32 public key ("xpub...").
type ExtendedPublicKey string

func (k ExtendedPublicKey) String() string { return string(k) }

// go-bip39 keeps the active word list in package state.
var wordListMu sync.Mutex

// MnemonicToXpriv derives the master extended private key.
func MnemonicToXpriv(words []string, lang Language) (ExtendedPrivateKey, error) {
	key, err := masterKey(words, lang)
	if err != nil {
		return "", err
	}
	return ExtendedPrivateKey(key.String()), nil
}

// MnemonicToXpub derives the master extended public key.
func MnemonicToXpub(words []string, lang Language) (ExtendedPublicKey, error) {
	key, err := masterKey(words, lang)
	if err != nil {
		return "", err
	}
	return ExtendedPublicKey(key.PublicKey().String()), nil
}

func masterKey(words []string, lang Language) (*bip32.Key, error) {
	list, err := lang.wordList()
	if err != nil {
		return nil, err
	}
	normalized := make([]string, len(list))
	for i, w := range list {
		normalized[i] = norm.NFKD.String(w)
	}
	mnemonic := norm.NFKD.String(strings.Join(strings.Fields(strings.Join(words, " ")), " "))
	if mnemonic == "" {
		return nil, fmt.Errorf("%w: no words", ErrInvalidMnemonic)
	}

	wordListMu.Lock()
	bip39.SetWordList(normalized)
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	bip39.SetWordList(wordlists.English)
	wordListMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMnemonic, lang, err)
	}

	key, err := bip32.NewMasterKey(entropy)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	return key, nil
}
