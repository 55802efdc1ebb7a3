package account

import (
	"fmt"
	"regexp"
	"strings"
)

// ScopePlatform プラットフォーム全体で利用可能な通貨スコープ
const ScopePlatform Scope = "platform"

// creatorScopePrefix クリエイタースコープのプレフィックス
const creatorScopePrefix = "creator:"

var creatorIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// Scope 通貨スコープを表す値オブジェクト
// "platform" または "creator:<creator_id>" のいずれか
type Scope string

// NewScope 新しいScopeを作成
func NewScope(s string) (Scope, error) {
	if s == string(ScopePlatform) {
		return ScopePlatform, nil
	}
	if strings.HasPrefix(s, creatorScopePrefix) {
		creatorID := strings.TrimPrefix(s, creatorScopePrefix)
		if !creatorIDRegex.MatchString(creatorID) {
			return "", fmt.Errorf("invalid currency scope: %s", s)
		}
		return Scope(s), nil
	}
	return "", fmt.Errorf("invalid currency scope: %s", s)
}

// CreatorScope クリエイターIDからクリエイタースコープを作成
func CreatorScope(creatorID string) (Scope, error) {
	return NewScope(creatorScopePrefix + creatorID)
}

// String 文字列表現を返す
func (s Scope) String() string {
	return string(s)
}

// IsPlatform プラットフォームスコープかどうかを返す
func (s Scope) IsPlatform() bool {
	return s == ScopePlatform
}

// IsCreator クリエイタースコープかどうかを返す
func (s Scope) IsCreator() bool {
	return strings.HasPrefix(string(s), creatorScopePrefix)
}

// CreatorID クリエイタースコープの場合はクリエイターIDを返す
func (s Scope) CreatorID() (string, bool) {
	if !s.IsCreator() {
		return "", false
	}
	return strings.TrimPrefix(string(s), creatorScopePrefix), true
}

// Valid 有効なスコープかどうかを返す
func (s Scope) Valid() bool {
	_, err := NewScope(string(s))
	return err == nil
}

// MustNewScope テスト用ヘルパー: NewScopeを呼び出し、エラーが発生した場合はpanicする
func MustNewScope(s string) Scope {
	scope, err := NewScope(s)
	if err != nil {
		panic(err)
	}
	return scope
}
