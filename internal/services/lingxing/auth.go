package lingxing

import (
	"bytes"
	"context"
	"crypto/aes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// 登录固定参数，来自网页端抓包
const (
	loginClientUUID = "254cd273-7e74-4f22-ba3e-ae199adbff19"

	secretKeyPath = "/newadmin/api/passport/getLoginSecretKey"
	loginPath     = "/newadmin/api/passport/login"
)

// 登录走网关域名，携带网页端的来源头
var authHeaders = map[string]string{
	"accept":              "application/json, text/plain, */*",
	"accept-language":     "zh-CN,zh;q=0.9,en;q=0.8",
	"origin":              "https://erp.lingxing.com",
	"referer":             "https://erp.lingxing.com/",
	"user-agent":          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
	"x-ak-company-id":     "901217529031491584",
	"x-ak-request-source": "erp",
}

// AuthError 登录或密钥交换失败。网络层错误不会包装成 AuthError，
// 调用方可以据此区分鉴权失败和传输失败。
type AuthError struct {
	Stage   string // getLoginSecretKey / login
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("鉴权失败(%s): %s", e.Stage, e.Message)
}

// Auth 领星登录客户端
type Auth struct {
	client     *resty.Client
	gatewayURL string
	account    string
	password   string
}

func NewAuth(gatewayURL, account, password string) *Auth {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &Auth{
		client:     client,
		gatewayURL: gatewayURL,
		account:    account,
		password:   password,
	}
}

// Login 完成密钥交换和登录，返回会话 token。
// 两步中任何一步失败都直接终止，不做重试。
func (a *Auth) Login(ctx context.Context) (string, error) {
	secretKey, secretID, err := a.getLoginSecretKey(ctx)
	if err != nil {
		return "", err
	}

	encryptedPwd, err := encryptPassword(a.password, secretKey)
	if err != nil {
		return "", fmt.Errorf("密码加密失败: %w", err)
	}

	payload := map[string]interface{}{
		"account":     a.account,
		"pwd":         encryptedPwd,
		"verify_code": "",
		"uuid":        loginClientUUID,
		"auto_login":  1,
		"secretId":    secretID,
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeaders(authHeaders).
		SetBody(payload).
		Post(a.gatewayURL + loginPath)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", &AuthError{Stage: "login", Message: string(resp.Body())}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &AuthError{Stage: "login", Message: "响应不是合法 JSON"}
	}

	v, ok := result["token"]
	if !ok {
		return "", &AuthError{Stage: "login", Message: "响应中没有 token 字段"}
	}
	token, ok := v.(string)
	if !ok || token == "" {
		// token 字段存在但为 null，属于登录被拒而非网络问题
		return "", &AuthError{Stage: "login", Message: "token 为空，账号或密码可能不正确"}
	}
	return token, nil
}

// getLoginSecretKey 获取本次登录的一次性密钥对，每次登录都重新获取
func (a *Auth) getLoginSecretKey(ctx context.Context) (secretKey string, secretID json.RawMessage, err error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeaders(authHeaders).
		SetBody(map[string]interface{}{}).
		Post(a.gatewayURL + secretKeyPath)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode() != 200 {
		return "", nil, &AuthError{Stage: "getLoginSecretKey", Message: string(resp.Body())}
	}

	var result struct {
		Data struct {
			SecretKey string          `json:"secretKey"`
			SecretID  json.RawMessage `json:"secretId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", nil, &AuthError{Stage: "getLoginSecretKey", Message: "响应不是合法 JSON"}
	}
	if result.Data.SecretKey == "" {
		return "", nil, &AuthError{Stage: "getLoginSecretKey", Message: "响应中没有 secretKey"}
	}
	return result.Data.SecretKey, result.Data.SecretID, nil
}

// encryptPassword AES-ECB + PKCS7 填充后 base64，对齐网页端的加密方式
func encryptPassword(plaintext, key string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", err
	}

	padLen := block.BlockSize() - len(plaintext)%block.BlockSize()
	padded := append([]byte(plaintext), bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	ciphertext := make([]byte, len(padded))
	for i := 0; i < len(padded); i += block.BlockSize() {
		block.Encrypt(ciphertext[i:i+block.BlockSize()], padded[i:i+block.BlockSize()])
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
