package domain

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DefaultLedgerTable はマイグレーション台帳テーブルの既定名。
const DefaultLedgerTable = "migration_version"

type versionKind int

const (
	// ゼロ値の Version は EMPTY になる。
	versionEmpty versionKind = iota
	versionCurrent
	versionNormal
	versionLatest
)

// Version はマイグレーションのバージョン番号を表す。
// 通常のバージョンは任意精度の非負整数列で、EMPTY / CURRENT / LATEST の3つの番兵を持つ。
// 生成後は不変で、複数のゴルーチンから共有してよい。
type Version struct {
	kind    versionKind
	parts   []*big.Int
	display string
}

var (
	// EmptyVersion はマイグレーションが1件も適用されていない状態を表す。
	EmptyVersion = Version{kind: versionEmpty}
	// CurrentVersion は「現在適用されているバージョン」を表すマーカー。
	CurrentVersion = Version{kind: versionCurrent}
	// LatestVersion は順序上の最大値。
	LatestVersion = Version{kind: versionLatest}
)

var latestVersionString = strconv.FormatInt(math.MaxInt64, 10)

// ParseVersion は文字列からバージョンを生成する。
// 空文字列は EMPTY、"current"（大文字小文字を区別しない）は CURRENT になる。
func ParseVersion(raw string) (Version, error) {
	switch {
	case raw == "":
		return EmptyVersion, nil
	case strings.EqualFold(raw, "current"):
		return CurrentVersion, nil
	case raw == latestVersionString:
		return LatestVersion, nil
	}

	normalized := strings.ReplaceAll(raw, "_", ".")
	parts, err := tokenize(normalized)
	if err != nil {
		return Version{}, &InvalidVersionError{Raw: raw}
	}
	return Version{kind: versionNormal, parts: parts, display: normalized}, nil
}

// ParseTargetVersion はターゲット指定用にバージョンを解釈する。
// 空文字列と "current" は CURRENT、"latest" は LATEST になる。
func ParseTargetVersion(raw string) (Version, error) {
	switch {
	case raw == "", strings.EqualFold(raw, "current"):
		return CurrentVersion, nil
	case strings.EqualFold(raw, "latest"):
		return LatestVersion, nil
	}
	return ParseVersion(raw)
}

// MustParseVersion は ParseVersion と同じだが、失敗時に panic する。
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// tokenize は数字が後続する "." の位置で分割し、各要素を整数として解釈する。
func tokenize(s string) ([]*big.Int, error) {
	var tokens []string
	start := 0
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '.' && isDigit(s[i+1]) {
			tokens = append(tokens, s[start:i])
			start = i + 1
		}
	}
	tokens = append(tokens, s[start:])

	parts := make([]*big.Int, 0, len(tokens))
	for _, token := range tokens {
		if token == "" || strings.IndexFunc(token, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return nil, ErrInvalidVersionFormat
		}
		n, ok := new(big.Int).SetString(token, 10)
		if !ok {
			return nil, ErrInvalidVersionFormat
		}
		parts = append(parts, n)
	}

	// 先頭要素を残して末尾の0を取り除く
	for len(parts) > 1 && parts[len(parts)-1].Sign() == 0 {
		parts = parts[:len(parts)-1]
	}
	return parts, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Compare は v と o を比較し、-1, 0, 1 を返す。
// 順序は EMPTY < CURRENT < 通常のバージョン < LATEST。
func (v Version) Compare(o Version) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	if v.kind != versionNormal {
		return 0
	}

	n := max(len(v.parts), len(o.parts))
	for i := 0; i < n; i++ {
		if c := partOrZero(v.parts, i).Cmp(partOrZero(o.parts, i)); c != 0 {
			return c
		}
	}
	return 0
}

var zero = big.NewInt(0)

func partOrZero(parts []*big.Int, i int) *big.Int {
	if i < len(parts) {
		return parts[i]
	}
	return zero
}

// Equal は v と o が同じバージョンを表すかを返す。
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// Less は v が o より小さいかを返す。
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// IsEmpty は EMPTY かどうかを返す。
func (v Version) IsEmpty() bool { return v.kind == versionEmpty }

// IsCurrent は CURRENT かどうかを返す。
func (v Version) IsCurrent() bool { return v.kind == versionCurrent }

// IsLatest は LATEST かどうかを返す。
func (v Version) IsLatest() bool { return v.kind == versionLatest }

// IsSentinel は番兵（EMPTY / CURRENT / LATEST）かどうかを返す。
func (v Version) IsSentinel() bool { return v.kind != versionNormal }

// Key は等価なバージョンで一致する正規化文字列を返す。マップのキーに使う。
func (v Version) Key() string {
	switch v.kind {
	case versionEmpty:
		return "<empty>"
	case versionCurrent:
		return "<current>"
	case versionLatest:
		return "<latest>"
	}
	s := make([]string, len(v.parts))
	for i, p := range v.parts {
		s[i] = p.String()
	}
	return strings.Join(s, ".")
}

// VersionString は台帳に保存する数値表現を返す。
// EMPTY は空文字列、LATEST は int64 の最大値になる。
func (v Version) VersionString() string {
	switch v.kind {
	case versionEmpty:
		return ""
	case versionLatest:
		return latestVersionString
	case versionCurrent:
		return "current"
	}
	return v.display
}

// String は表示用の文字列を返す。
func (v Version) String() string {
	switch v.kind {
	case versionEmpty:
		return "<< Empty Schema >>"
	case versionCurrent:
		return "<< Current Version >>"
	case versionLatest:
		return "<< Latest Version >>"
	}
	return v.display
}

// MarshalText は表示用の文字列をそのまま返す。
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
