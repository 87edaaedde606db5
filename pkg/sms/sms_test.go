// Package sms 短信服务单元测试
package sms

import (
	"context"
	"errors"
	"testing"
	"time"

	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI 记录请求的阿里云接口替身
type fakeAPI struct {
	requests []*dysmsapi.SendSmsRequest
	runtimes []*util.RuntimeOptions
	code     string
	message  string
	err      error
}

func (f *fakeAPI) SendSmsWithOptions(request *dysmsapi.SendSmsRequest, runtime *util.RuntimeOptions) (*dysmsapi.SendSmsResponse, error) {
	f.requests = append(f.requests, request)
	f.runtimes = append(f.runtimes, runtime)
	if f.err != nil {
		return nil, f.err
	}
	return &dysmsapi.SendSmsResponse{
		Body: &dysmsapi.SendSmsResponseBody{Code: tea.String(f.code), Message: tea.String(f.message)},
	}, nil
}

func newTestSender(api *fakeAPI) *AliyunSender {
	return newAliyunSender(api, "测试酒店", map[string]string{
		TemplateReservationConfirmed: "SMS_100001",
	})
}

func TestAliyunSender_Send(t *testing.T) {
	api := &fakeAPI{code: "OK"}
	sender := newTestSender(api)

	err := sender.Send(context.Background(), "13800138000", TemplateReservationConfirmed, map[string]string{
		"room": "101",
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, "13800138000", tea.StringValue(req.PhoneNumbers))
	assert.Equal(t, "测试酒店", tea.StringValue(req.SignName))
	assert.Equal(t, "SMS_100001", tea.StringValue(req.TemplateCode))
	assert.JSONEq(t, `{"room":"101"}`, tea.StringValue(req.TemplateParam))
	assert.Nil(t, api.runtimes[0].ReadTimeout)
}

func TestAliyunSender_Send_Deadline(t *testing.T) {
	api := &fakeAPI{code: "OK"}
	sender := newTestSender(api)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sender.Send(ctx, "13800138000", TemplateReservationConfirmed, nil))
	require.NotNil(t, api.runtimes[0].ReadTimeout)
	assert.Greater(t, tea.IntValue(api.runtimes[0].ReadTimeout), 0)
	assert.LessOrEqual(t, tea.IntValue(api.runtimes[0].ReadTimeout), 5000)
}

func TestAliyunSender_Send_Errors(t *testing.T) {
	t.Run("模板未配置", func(t *testing.T) {
		api := &fakeAPI{code: "OK"}
		err := newTestSender(api).Send(context.Background(), "13800138000", TemplateReservationCancelled, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), TemplateReservationCancelled)
		assert.Empty(t, api.requests)
	})

	t.Run("接口返回失败码", func(t *testing.T) {
		api := &fakeAPI{code: "isv.MOBILE_NUMBER_ILLEGAL", message: "非法手机号"}
		err := newTestSender(api).Send(context.Background(), "13800138000", TemplateReservationConfirmed, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "isv.MOBILE_NUMBER_ILLEGAL")
	})

	t.Run("网络错误", func(t *testing.T) {
		api := &fakeAPI{err: errors.New("connection reset")}
		err := newTestSender(api).Send(context.Background(), "13800138000", TemplateReservationConfirmed, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("上下文已取消", func(t *testing.T) {
		api := &fakeAPI{code: "OK"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := newTestSender(api).Send(ctx, "13800138000", TemplateReservationConfirmed, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, api.requests)
	})
}

func TestMockSender(t *testing.T) {
	sender := NewMockSender(nil)
	ctx := context.Background()

	assert.Nil(t, sender.LastMessage())

	require.NoError(t, sender.Send(ctx, "13800138000", TemplateReservationConfirmed, map[string]string{"room": "101"}))
	require.NoError(t, sender.Send(ctx, "13900139000", TemplateReservationCancelled, nil))

	assert.Len(t, sender.Messages(), 2)
	last := sender.LastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "13900139000", last.Phone)
	assert.Equal(t, TemplateReservationCancelled, last.Template)
	assert.NotZero(t, last.SentAt)

	sender.Err = errors.New("quota exceeded")
	assert.Error(t, sender.Send(ctx, "13800138000", TemplateReservationModified, nil))
	assert.Len(t, sender.Messages(), 2)

	sender.Clear()
	assert.Empty(t, sender.Messages())
}
