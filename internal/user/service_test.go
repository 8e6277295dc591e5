package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/bytebank/backend/internal/user"
)

func TestService_SignUp(t *testing.T) {
	type testCase struct {
		name      string
		params    user.SignUpParams
		setupMock func(m *user.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			params: user.SignUpParams{
				Email:    "Ana@Example.com",
				Name:     "Ana",
				Password: "hunter22",
			},
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().
					CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, u *user.User, hash []byte) error {
						// Email is normalized and the password never stored raw.
						assert.Equal(t, "ana@example.com", u.Email)
						assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("hunter22")))
						return nil
					})
			},
		},
		{
			name: "BadEmail",
			params: user.SignUpParams{
				Email:    "not-an-email",
				Name:     "Ana",
				Password: "hunter22",
			},
			wantErr: user.ErrInvalid,
		},
		{
			name: "ShortPassword",
			params: user.SignUpParams{
				Email:    "ana@example.com",
				Name:     "Ana",
				Password: "12345",
			},
			wantErr: user.ErrInvalid,
		},
		{
			name: "MissingName",
			params: user.SignUpParams{
				Email:    "ana@example.com",
				Password: "hunter22",
			},
			wantErr: user.ErrInvalid,
		},
		{
			name: "EmailTaken",
			params: user.SignUpParams{
				Email:    "ana@example.com",
				Name:     "Ana",
				Password: "hunter22",
			},
			setupMock: func(m *user.MockRepository) {
				m.EXPECT().
					CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(user.ErrEmailTaken)
			},
			wantErr: user.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := user.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := user.NewService(repo)
			got, err := svc.SignUp(context.Background(), tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &user.User{Email: "ana@example.com", Name: "Ana"}

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := user.NewMockRepository(ctrl)
		repo.EXPECT().
			GetUserByEmail(gomock.Any(), "ana@example.com").
			Return(stored, hash, nil)

		svc := user.NewService(repo)

		got, err := svc.Login(context.Background(), "  ANA@example.com ", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, stored, got)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := user.NewMockRepository(ctrl)
		repo.EXPECT().
			GetUserByEmail(gomock.Any(), "ana@example.com").
			Return(stored, hash, nil)

		svc := user.NewService(repo)

		_, err := svc.Login(context.Background(), "ana@example.com", "wrong")
		assert.ErrorIs(t, err, user.ErrBadCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := user.NewMockRepository(ctrl)
		repo.EXPECT().
			GetUserByEmail(gomock.Any(), "ghost@example.com").
			Return(nil, nil, user.ErrNotFound)

		svc := user.NewService(repo)

		// Unknown email and wrong password are indistinguishable.
		_, err := svc.Login(context.Background(), "ghost@example.com", "hunter22")
		assert.ErrorIs(t, err, user.ErrBadCredentials)
	})
}

func TestValidEmail(t *testing.T) {
	assert.True(t, user.ValidEmail("ana@example.com"))
	assert.True(t, user.ValidEmail("a.b+tag@sub.example.org"))
	assert.False(t, user.ValidEmail("ana@example"))
	assert.False(t, user.ValidEmail("ana example.com"))
	assert.False(t, user.ValidEmail(""))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana", (&user.User{Name: "Ana", Email: "ana@example.com"}).DisplayName())
	assert.Equal(t, "ana", (&user.User{Email: "ana@example.com"}).DisplayName())
}
