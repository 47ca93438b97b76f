package wallet

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vector = strings.Fields("certain dust pave crane renew multiply stone stuff proud flee fancy knee")

const (
	vectorXpriv = "xprv9s21ZrQH143K29TJGFSiEAAQM8SMBH2V6x5Aaf9bqvXftrs1v274STWWKfz8svukBLGEQgWqkgRhpt2CNFY89CFaqdsA3gicZeqexk2itxf"
	vectorXpub  = "xpub661MyMwAqRbcEdXmNGyibJ78uAGqajkLUAzmP3ZDQG4emfCATZRJzFpzAxQRUsGxfvEEpTKBusBe42vEkdA1JTtevFo1f2JFDrqP5ui6syN"
)

func TestMnemonicToXpriv(t *testing.T) {
	xpriv, err := MnemonicToXpriv(vector, English)
	require.NoError(t, err)
	assert.Equal(t, vectorXpriv, xpriv.String())
}

func TestMnemonicToXpub(t *testing.T) {
	xpub, err := MnemonicToXpub(vector, English)
	require.NoError(t, err)
	assert.Equal(t, vectorXpub, xpub.String())
}

func TestMnemonic_WhitespaceIsNormalized(t *testing.T) {
	xpriv, err := MnemonicToXpriv([]string{"  certain dust pave crane", "renew multiply stone stuff\tproud flee fancy knee "}, English)
	require.NoError(t, err)
	assert.Equal(t, vectorXpriv, xpriv.String())
}

func TestMnemonic_Errors(t *testing.T) {
	_, err := MnemonicToXpriv(nil, English)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = MnemonicToXpriv(vector[:11], English)
	assert.ErrorIs(t, err, ErrInvalidMnemonic, "eleven words is not a valid mnemonic length")

	_, err = MnemonicToXpriv(append(append([]string{}, vector[:11]...), "notaword"), English)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = MnemonicToXpriv(vector, Spanish)
	assert.ErrorIs(t, err, ErrInvalidMnemonic, "words outside the word list must be rejected")

	_, err = MnemonicToXpriv(vector, Language(42))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidMnemonic)
}

func TestMnemonic_ConcurrentLanguages(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			xpriv, err := MnemonicToXpriv(vector, English)
			assert.NoError(t, err)
			assert.Equal(t, vectorXpriv, xpriv.String())
		}()
		go func() {
			defer wg.Done()
			_, err := MnemonicToXpriv(vector, French)
			assert.Error(t, err)
		}()
	}
	wg.Wait()
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]Language{
		"english":             English,
		"English":             English,
		"chinese_simplified":  ChineseSimplified,
		"Chinese Traditional": ChineseTraditional,
		"french":              French,
		"italian":             Italian,
		"japanese":            Japanese,
		"korean":              Korean,
		"spanish":             Spanish,
	}
	for in, want := range tests {
		got, err := ParseLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseLanguage("klingon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "english, chinese-simplified, chinese-traditional")
}

func TestLanguages_RoundTripNames(t *testing.T) {
	for _, l := range Languages() {
		got, err := ParseLanguage(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)

		list, err := l.wordList()
		require.NoError(t, err)
		assert.Len(t, list, 2048)
	}
	assert.Equal(t, "Language(-1)", Language(-1).String())
}
