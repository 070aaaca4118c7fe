package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"tramite-system/internal/entities"
	"tramite-system/internal/services/mocks"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/notify"
)

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*entities.Notificacion
	order []uuid.UUID
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: make(map[uuid.UUID]*entities.Notificacion)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *entities.Notificacion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.items[n.ID] = &cp
	r.order = append(r.order, n.ID)
	return nil
}

func (r *fakeNotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	n.Enviado = true
	n.FechaEnvio.SetValid(at)
	return nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UsuarioID != userID {
		return apperrors.ErrNotFound
	}
	n.Leida = true
	n.FechaLectura.SetValid(at)
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.UsuarioID == userID && !item.Leida {
			item.Leida = true
			item.FechaLectura.SetValid(at)
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.UsuarioID == userID && !item.Leida {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit uint64, unreadOnly bool) ([]entities.Notificacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Notificacion, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		item, ok := r.items[r.order[i]]
		if !ok || item.UsuarioID != userID || (unreadOnly && item.Leida) {
			continue
		}
		out = append(out, *item)
		if uint64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UsuarioID != userID {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeNotificationRepo) get(id uuid.UUID) entities.Notificacion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.items[id]
}

func TestNotificationService_PlataformaIsSentImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	email := mocks.NewMockSender(ctrl) // не должен вызываться
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, map[entities.Canal]notify.Sender{entities.CanalEmail: email}, nil, zap.NewNop())

	n, err := svc.Send(context.Background(), NotificationRequest{
		UsuarioID: uuid.New(),
		Tipo:      entities.NotificacionEstadoCambio,
		Titulo:    "t",
		Mensaje:   "m",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.CanalPlataforma, n.Canal)
	assert.True(t, repo.get(n.ID).Enviado)
	assert.True(t, repo.get(n.ID).FechaEnvio.Valid)
}

func TestNotificationService_ExternalChannelAcked(t *testing.T) {
	ctrl := gomock.NewController(t)
	email := mocks.NewMockSender(ctrl)
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, map[entities.Canal]notify.Sender{entities.CanalEmail: email}, nil, zap.NewNop())

	owner := uuid.New()
	email.EXPECT().
		Deliver(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, msg notify.Message) (bool, error) {
			assert.Equal(t, owner, msg.UsuarioID)
			assert.Equal(t, "vecino@example.com", msg.Email)
			assert.Equal(t, "TRM-2025-000007", msg.NumeroTramite)
			assert.Equal(t, "aprobacion", msg.Tipo)
			return true, nil
		})

	n, err := svc.Send(context.Background(), NotificationRequest{
		UsuarioID:     owner,
		NumeroTramite: "TRM-2025-000007",
		Tipo:          entities.NotificacionAprobacion,
		Canal:         entities.CanalEmail,
		Email:         "vecino@example.com",
	})
	require.NoError(t, err)
	assert.True(t, n.Enviado)
	assert.True(t, repo.get(n.ID).Enviado)
}

func TestNotificationService_ExternalChannelPendingWithoutAck(t *testing.T) {
	ctrl := gomock.NewController(t)
	sms := mocks.NewMockSender(ctrl)
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, map[entities.Canal]notify.Sender{entities.CanalSMS: sms}, nil, zap.NewNop())

	sms.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(false, nil)

	n, err := svc.Send(context.Background(), NotificationRequest{UsuarioID: uuid.New(), Canal: entities.CanalSMS, Telefono: "+34600000000"})
	require.NoError(t, err)
	assert.False(t, repo.get(n.ID).Enviado)
}

func TestNotificationService_DeliveryFailureKeepsRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	push := mocks.NewMockSender(ctrl)
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, map[entities.Canal]notify.Sender{entities.CanalPush: push}, nil, zap.NewNop())

	push.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(false, errors.New("no connection"))

	n, err := svc.Send(context.Background(), NotificationRequest{UsuarioID: uuid.New(), Canal: entities.CanalPush})
	require.Error(t, err)
	assert.True(t, IsDeliveryError(err))

	var de *apperrors.NotificationDeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "push", de.Channel)

	require.NotNil(t, n)
	assert.False(t, repo.get(n.ID).Enviado)
}

func TestNotificationService_ChannelWithoutSender(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nil, nil, zap.NewNop())

	n, err := svc.Send(context.Background(), NotificationRequest{UsuarioID: uuid.New(), Canal: entities.CanalEmail})
	assert.True(t, IsDeliveryError(err))
	assert.False(t, repo.get(n.ID).Enviado)
}

func TestNotificationService_InvalidRequest(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationRepo(), nil, nil, zap.NewNop())

	_, err := svc.Send(context.Background(), NotificationRequest{})
	assert.Error(t, err)
	assert.False(t, IsDeliveryError(err))

	_, err = svc.Send(context.Background(), NotificationRequest{UsuarioID: uuid.New(), Canal: "fax"})
	assert.Error(t, err)
}

func TestNotificationService_ReadSide(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nil, nil, zap.NewNop())
	owner, other := uuid.New(), uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n, err := svc.Send(ctx, NotificationRequest{UsuarioID: owner, Titulo: "t"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	_, err := svc.Send(ctx, NotificationRequest{UsuarioID: other})
	require.NoError(t, err)

	count, err := svc.CountUnread(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, svc.MarkRead(ctx, ids[0], owner))
	assert.ErrorIs(t, svc.MarkRead(ctx, ids[1], other), apperrors.ErrNotFound, "чужое уведомление")

	unread, err := svc.ListForUser(ctx, owner, 0, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	marked, err := svc.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	require.NoError(t, svc.Delete(ctx, ids[2], owner))
	all, err := svc.ListForUser(ctx, owner, 10, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, _ = svc.CountUnread(ctx, other)
	assert.Equal(t, 1, count)
}

func TestStateChangeTemplate(t *testing.T) {
	tests := []struct {
		estado  entities.Estado
		tipo    entities.NotificacionTipo
		mensaje string
	}{
		{entities.EstadoRecibido, entities.NotificacionEstadoCambio, "Su trámite ha sido recibido y está siendo procesado."},
		{entities.EstadoAprobado, entities.NotificacionAprobacion, "¡Felicitaciones! Su trámite ha sido aprobado."},
		{entities.EstadoRechazado, entities.NotificacionRechazo, "Su trámite ha sido rechazado. Revise los comentarios para más información."},
		{entities.EstadoCompletado, entities.NotificacionEstadoCambio, "Su trámite ha sido completado exitosamente."},
		{entities.Estado("otro"), entities.NotificacionEstadoCambio, "El estado de su trámite ha cambiado."},
	}
	for _, tt := range tests {
		tipo, titulo, mensaje := StateChangeTemplate("TRM-2025-000001", tt.estado)
		assert.Equal(t, tt.tipo, tipo, tt.estado)
		assert.Equal(t, "Actualización de trámite TRM-2025-000001", titulo)
		assert.Equal(t, tt.mensaje, mensaje)
	}
}

func TestReminderTemplate(t *testing.T) {
	_, m3 := ReminderTemplate("TRM-2025-000001", 3)
	assert.Equal(t, "Su trámite vence en 3 días. Por favor, complete los pasos pendientes.", m3)
	_, m1 := ReminderTemplate("TRM-2025-000001", 1)
	assert.Equal(t, "Su trámite vence en 1 día. Por favor, complete los pasos pendientes.", m1)
}
