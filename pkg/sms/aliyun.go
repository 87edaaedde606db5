// Package sms 提供短信服务
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
)

// Config 短信配置
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	Endpoint        string
	// Templates 模板名到阿里云模板编码的映射，如 reservation_confirmed -> SMS_123456
	Templates map[string]string
}

// 模板名
const (
	TemplateReservationConfirmed = "reservation_confirmed"
	TemplateReservationModified  = "reservation_modified"
	TemplateReservationCancelled = "reservation_cancelled"
)

// Sender 短信发送接口
type Sender interface {
	Send(ctx context.Context, phone, template string, params map[string]string) error
}

// smsAPI 阿里云短信接口，便于测试替换
type smsAPI interface {
	SendSmsWithOptions(request *dysmsapi.SendSmsRequest, runtime *util.RuntimeOptions) (*dysmsapi.SendSmsResponse, error)
}

// AliyunSender 阿里云短信发送器
type AliyunSender struct {
	api       smsAPI
	signName  string
	templates map[string]string
}

// NewAliyunSender 创建阿里云短信发送器
func NewAliyunSender(cfg *Config) (*AliyunSender, error) {
	config := &openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKeyID),
		AccessKeySecret: tea.String(cfg.AccessKeySecret),
	}
	if cfg.Endpoint != "" {
		config.Endpoint = tea.String(cfg.Endpoint)
	} else {
		config.Endpoint = tea.String("dysmsapi.aliyuncs.com")
	}

	client, err := dysmsapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sms client: %w", err)
	}
	return newAliyunSender(client, cfg.SignName, cfg.Templates), nil
}

func newAliyunSender(api smsAPI, signName string, templates map[string]string) *AliyunSender {
	t := make(map[string]string, len(templates))
	for k, v := range templates {
		t[k] = v
	}
	return &AliyunSender{api: api, signName: signName, templates: t}
}

// Send 按模板名发送短信
func (s *AliyunSender) Send(ctx context.Context, phone, template string, params map[string]string) error {
	code, ok := s.templates[template]
	if !ok || code == "" {
		return fmt.Errorf("sms template %q not configured", template)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	templateParam, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal sms params: %w", err)
	}

	request := &dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(phone),
		SignName:      tea.String(s.signName),
		TemplateCode:  tea.String(code),
		TemplateParam: tea.String(string(templateParam)),
	}
	runtime := &util.RuntimeOptions{}
	if deadline, ok := ctx.Deadline(); ok {
		ms := int(time.Until(deadline) / time.Millisecond)
		if ms < 1 {
			return context.DeadlineExceeded
		}
		runtime.ReadTimeout = tea.Int(ms)
		runtime.ConnectTimeout = tea.Int(ms)
	}

	response, err := s.api.SendSmsWithOptions(request, runtime)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	if response == nil || response.Body == nil || tea.StringValue(response.Body.Code) != "OK" {
		code, msg := "", "empty response"
		if response != nil && response.Body != nil {
			code, msg = tea.StringValue(response.Body.Code), tea.StringValue(response.Body.Message)
		}
		return fmt.Errorf("sms send failed: %s - %s", code, msg)
	}
	return nil
}
