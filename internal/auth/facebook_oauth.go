package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/docbao/internal/model"
)

const (
	defaultFacebookAuthURL     = "https://www.facebook.com/v19.0/dialog/oauth"
	defaultFacebookTokenURL    = "https://graph.facebook.com/v19.0/oauth/access_token"
	defaultFacebookUserInfoURL = "https://graph.facebook.com/v19.0/me"
)

// FacebookOAuthConfig はFacebookログインの設定。
type FacebookOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// FacebookOAuthProvider はFacebookログインによる認証を提供する。
type FacebookOAuthProvider struct {
	config FacebookOAuthConfig
}

// NewFacebookOAuthProvider はFacebookOAuthProviderを生成する。
func NewFacebookOAuthProvider(config FacebookOAuthConfig) *FacebookOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultFacebookAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultFacebookTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultFacebookUserInfoURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	return &FacebookOAuthProvider{config: config}
}

// GetLoginURL はFacebookログインの認証URLを生成する。
func (p *FacebookOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"email,public_profile"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// facebookUserInfo はGraph APIの/meレスポンス。
type facebookUserInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、Graph APIでユーザー情報を取得する。
// Facebookはメールアドレスを返さない場合がある。
func (p *FacebookOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
	}
	var token tokenResponse
	if err := postForm(ctx, p.config.HTTPClient, p.config.TokenURL, form.Encode(), &token); err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	meURL := p.config.UserInfoURL + "?" + url.Values{"fields": {"id,name,email,picture.type(large)"}}.Encode()
	var info facebookUserInfo
	if err := getJSON(ctx, p.config.HTTPClient, meURL, token.AccessToken, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("empty id in user info response")
	}

	return &OAuthUserInfo{
		ProviderUserID: info.ID,
		Email:          info.Email,
		Name:           info.Name,
		PictureURL:     info.Picture.Data.URL,
		Provider:       model.ProviderFacebook,
	}, nil
}

var _ OAuthProvider = (*FacebookOAuthProvider)(nil)
